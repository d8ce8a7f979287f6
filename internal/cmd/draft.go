package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/bshape/internal/catalog"
	"github.com/harrison/bshape/internal/draft"
	"github.com/harrison/bshape/internal/models"
	"github.com/harrison/bshape/internal/planner"
)

// NewDraftCommand creates the 'bshape draft' command group.
func NewDraftCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Inspect or discard the saved assessment draft",
		Long: `The draft holds an assessment in progress. It is removed once the
assessment is submitted.

Examples:
  bshape draft show
  bshape draft clear --yes`,
	}

	cmd.AddCommand(newDraftShowCommand())
	cmd.AddCommand(newDraftClearCommand())

	return cmd
}

func newDraftShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show where the saved draft stands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cat, err := loadCatalog()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sess, err := draft.NewFileStore(cfg.DraftPath).Load()
			if errors.Is(err, draft.ErrNoDraft) {
				fmt.Fprintln(out, "No saved draft.")
				return nil
			}
			if err != nil {
				return err
			}
			printDraft(out, cat, sess)
			return nil
		},
	}
}

func newDraftClearCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard the saved draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			store := draft.NewFileStore(cfg.DraftPath)
			if _, err := store.Load(); errors.Is(err, draft.ErrNoDraft) {
				fmt.Fprintln(out, "No saved draft.")
				return nil
			}

			if !yes {
				fmt.Fprintln(out, "This will discard every answer in the saved assessment.")
				if !confirmAction(cmd.InOrStdin(), out) {
					fmt.Fprintln(out, "Operation cancelled.")
					return nil
				}
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(out, "Draft cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

// confirmAction asks a yes/no question and defaults to no.
func confirmAction(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "Continue? [y/N]: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	response := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return response == "y" || response == "yes"
}

func printDraft(w io.Writer, cat *catalog.Catalog, sess *models.Session) {
	p := planner.New(cat)
	total := p.TotalSteps(sess.RelationshipConcerns)

	fmt.Fprintf(w, "Session:     %s\n", sess.ID)
	fmt.Fprintf(w, "Started:     %s\n", sess.StartedAt.UTC().Format("2006-01-02 15:04 MST"))
	if loc, err := p.Locate(sess.CurrentStep, sess.RelationshipConcerns); err == nil {
		fmt.Fprintf(w, "Step:        %d of %d (%s)\n", sess.CurrentStep+1, total, loc)
	} else {
		fmt.Fprintf(w, "Step:        %d of %d (outside the step plan; run 'bshape start --fresh' to begin again)\n", sess.CurrentStep+1, total)
	}

	concerns := "(none)"
	if len(sess.RelationshipConcerns) > 0 {
		concerns = strings.Join(sess.RelationshipConcerns, "; ")
	}
	fmt.Fprintf(w, "Concerns:    %s\n", concerns)

	for _, sec := range p.ActiveSections(sess.RelationshipConcerns) {
		fmt.Fprintf(w, "%-12s %d of %d questions answered\n",
			sec.Title()+":", answeredMain(cat.Section(sec), sess.AnswersOf(sec)), cat.Section(sec).Len())
	}
	if sess.Submitted {
		fmt.Fprintf(w, "Submitted:   %s\n", sess.SubmissionID)
	}
}

// answeredMain counts answered main questions, ignoring follow-ups.
func answeredMain(def *catalog.SectionDef, answers models.AnswerSet) int {
	n := 0
	for _, q := range def.Questions {
		if _, ok := answers[q.ID]; ok {
			n++
		}
	}
	return n
}
