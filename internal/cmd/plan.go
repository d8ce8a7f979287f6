package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harrison/bshape/internal/catalog"
	"github.com/harrison/bshape/internal/models"
	"github.com/harrison/bshape/internal/planner"
)

// NewPlanCommand creates the 'bshape plan' command.
func NewPlanCommand() *cobra.Command {
	var concerns []string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the step plan for a set of relationship concerns",
		Long: `Print which steps an assessment would walk through for the given
relationship concerns. Concerns are given by their option number or label.

Examples:
  # Plan for a current partner and in-laws
  bshape plan --concern 1 --concern 3

  # With no concerns only the intake pages and the summary remain
  bshape plan`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog()
			if err != nil {
				return err
			}
			labels, err := resolveConcerns(cat, concerns)
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), cat, labels)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&concerns, "concern", nil, "Relationship concern (number or label, repeatable)")

	return cmd
}

// resolveConcerns maps option numbers and labels onto catalog concern labels.
func resolveConcerns(cat *catalog.Catalog, given []string) ([]string, error) {
	labels := make([]string, 0, len(given))
	for _, g := range given {
		g = strings.TrimSpace(g)
		if idx, err := parseOptionNumber(g, len(cat.Concerns)); err == nil {
			labels = append(labels, cat.Concerns[idx].Label)
			continue
		}
		if !cat.IsConcern(g) {
			valid := make([]string, 0, len(cat.Concerns))
			for i, c := range cat.Concerns {
				valid = append(valid, fmt.Sprintf("%d. %s", i+1, c.Label))
			}
			return nil, fmt.Errorf("unknown concern %q, valid concerns:\n  %s", g, strings.Join(valid, "\n  "))
		}
		labels = append(labels, g)
	}
	return labels, nil
}

func parseOptionNumber(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an option number", s)
	}
	if i < 1 || i > n {
		return 0, fmt.Errorf("option %d is out of range 1-%d", i, n)
	}
	return i - 1, nil
}

func printPlan(w io.Writer, cat *catalog.Catalog, concerns []string) {
	p := planner.New(cat)
	layout := p.Layout(concerns)

	active := make([]string, 0, len(layout.Spans))
	for _, span := range layout.Spans {
		active = append(active, span.Section.String())
	}
	if len(active) == 0 {
		active = append(active, "none")
	}
	fmt.Fprintf(w, "Active sections: %s\n", strings.Join(active, ", "))
	fmt.Fprintf(w, "Total steps: %d\n\n", layout.Total())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "STEPS\tPAGE\n")
	fmt.Fprintf(tw, "%s\tintake\n", stepRange(0, models.IntakeStepCount-1))
	for _, span := range layout.Spans {
		title := cat.Section(span.Section).Title
		fmt.Fprintf(tw, "%s\t%s intro\n", stepRange(span.Intro, span.Intro), title)
		fmt.Fprintf(tw, "%s\t%s questions (%d)\n",
			stepRange(span.FirstQuestion, span.FirstQuestion+span.Questions-1), title, span.Questions)
		fmt.Fprintf(tw, "%s\t%s results\n", stepRange(span.Results, span.Results), title)
	}
	fmt.Fprintf(tw, "%s\tsummary\n", stepRange(layout.Summary, layout.Summary))
	tw.Flush()
}

func stepRange(first, last int) string {
	if first == last {
		return fmt.Sprintf("%d", first)
	}
	return fmt.Sprintf("%d-%d", first, last)
}
