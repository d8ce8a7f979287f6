package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/bshape/internal/render"
)

// Export formats.
const (
	FormatHTML     = "html"
	FormatMarkdown = "md"
)

// NewExportCommand creates the 'bshape export' command.
func NewExportCommand() *cobra.Command {
	var outPath string
	var format string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a stored submission as a report file",
		Long: `Export the report for a stored submission as HTML or Markdown.
The report contains personal answers; it is written readable by the owner only.

Examples:
  bshape export 3f1c9a2e-... --out report.html
  bshape export 3f1c9a2e-... --format md --out report.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != FormatHTML && format != FormatMarkdown {
				return fmt.Errorf("invalid format %q, must be one of: %s, %s", format, FormatHTML, FormatMarkdown)
			}

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

			meta := render.ReportMeta{SubmissionID: rec.ID, SubmittedAt: rec.SubmittedAt}
			var data []byte
			if format == FormatMarkdown {
				data = render.Markdown(cat, rec.Session, meta)
			} else if data, err = render.HTML(cat, rec.Session, meta); err != nil {
				return err
			}

			if outPath == "" {
				outPath = fmt.Sprintf("bshape-%s.%s", rec.ID, format)
			}
			if dir := filepath.Dir(outPath); dir != "." {
				if err := os.MkdirAll(dir, 0700); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}
			if err := os.WriteFile(outPath, data, 0600); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default bshape-<id>.<format>)")
	cmd.Flags().StringVar(&format, "format", FormatHTML, "Report format: html or md")

	return cmd
}
