package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harrison/bshape/internal/config"
	"github.com/harrison/bshape/internal/models"
	"github.com/harrison/bshape/internal/render"
	"github.com/harrison/bshape/internal/submission"
)

// NewSubmissionsCommand creates the 'bshape submissions' command group.
func NewSubmissionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "Inspect stored submissions",
		Long: `List and show completed assessments held in the local submission store.

Examples:
  bshape submissions list
  bshape submissions list --limit 5
  bshape submissions show 3f1c9a2e-...`,
	}

	cmd.AddCommand(newSubmissionsListCommand())
	cmd.AddCommand(newSubmissionsShowCommand())

	return cmd
}

func newSubmissionsListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored submissions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openExistingStore(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if store == nil {
				fmt.Fprintln(out, "No submissions yet.")
				return nil
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			total, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			printRecords(out, records, total)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of submissions to show (0 for all)")

	return cmd
}

func newSubmissionsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the report for one submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cat, err := loadCatalog()
			if err != nil {
				return err
			}
			rec, err := findRecord(cmd, cfg, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Client address: %s\n\n", rec.IPAddress)
			_, err = out.Write(render.Markdown(cat, rec.Session, render.ReportMeta{
				SubmissionID: rec.ID,
				SubmittedAt:  rec.SubmittedAt,
			}))
			return err
		},
	}
}

// openExistingStore opens the configured submission store, or returns nil when nothing was ever stored.
func openExistingStore(cfg *config.Config) (*submission.Store, error) {
	if _, err := os.Stat(cfg.Submission.DBPath); os.IsNotExist(err) {
		return nil, nil
	}
	store, err := submission.NewStore(cfg.Submission.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open submission store: %w", err)
	}
	return store, nil
}

func findRecord(cmd *cobra.Command, cfg *config.Config, id string) (*submission.Record, error) {
	store, err := openExistingStore(cfg)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("submission %s not found: no submissions stored in %s", id, cfg.Submission.DBPath)
	}
	defer store.Close()

	rec, err := store.Get(cmd.Context(), id)
	if errors.Is(err, submission.ErrNotFound) {
		return nil, fmt.Errorf("submission %s not found", id)
	}
	return rec, err
}

func printRecords(w io.Writer, records []*submission.Record, total int) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No submissions yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tSUBMITTED\tADDRESS\tRESULTS\n")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			rec.ID, rec.SubmittedAt.UTC().Format("2006-01-02 15:04"), rec.IPAddress, resultSummary(rec))
	}
	tw.Flush()

	if total > len(records) {
		fmt.Fprintf(w, "\nShowing %d of %d submissions.\n", len(records), total)
	}
}

func resultSummary(rec *submission.Record) string {
	levels := rec.Levels()
	parts := make([]string, 0, len(levels))
	for _, sec := range models.SectionOrder {
		level, ok := levels[sec]
		if !ok {
			continue
		}
		part := fmt.Sprintf("%s=%s", sec, level)
		if sec == models.SectionPartner && rec.PartnerScore != nil {
			part += fmt.Sprintf("(%d)", *rec.PartnerScore)
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
