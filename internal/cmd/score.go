package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/harrison/bshape/internal/catalog"
	"github.com/harrison/bshape/internal/models"
	"github.com/harrison/bshape/internal/scoring"
)

// NewScoreCommand creates the 'bshape score' command.
func NewScoreCommand() *cobra.Command {
	var breakdown bool

	cmd := &cobra.Command{
		Use:   "score <answers.yaml>",
		Short: "Score a file of answers without running the questionnaire",
		Long: `Score answers read from a YAML file keyed by section and question id.
Sections that are absent from the file are not scored.

Example answers file:
  partner:
    "1": true
    "6": true
    "6a": false
  inlaws:
    "2": false

Examples:
  bshape score answers.yaml
  bshape score answers.yaml --breakdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog()
			if err != nil {
				return err
			}
			sections, err := readAnswerFile(cat, args[0])
			if err != nil {
				return err
			}
			printScores(cmd.OutOrStdout(), cat, sections, breakdown)
			return nil
		},
	}

	cmd.Flags().BoolVar(&breakdown, "breakdown", false, "Show the points awarded per question")

	return cmd
}

// readAnswerFile loads and checks answers against the catalog.
func readAnswerFile(cat *catalog.Catalog, path string) (map[models.Section]models.AnswerSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read answers file: %w", err)
	}

	var raw map[string]models.AnswerSet
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse answers file: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("answers file %s contains no sections", path)
	}

	sections := make(map[models.Section]models.AnswerSet, len(raw))
	for key, answers := range raw {
		sec, err := models.ParseSection(key)
		if err != nil {
			return nil, err
		}
		if err := checkAnswers(cat.Section(sec), answers); err != nil {
			return nil, fmt.Errorf("section %s: %w", sec, err)
		}
		if answers == nil {
			answers = models.AnswerSet{}
		}
		sections[sec] = answers
	}
	return sections, nil
}

func checkAnswers(def *catalog.SectionDef, answers models.AnswerSet) error {
	known := make(map[string]*models.Question)
	for i := range def.Questions {
		q := &def.Questions[i]
		known[q.ID] = q
		if q.SubQuestion != nil {
			known[q.SubQuestion.ID] = &q.SubQuestion.Question
		}
	}

	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		q, ok := known[id]
		if !ok {
			return fmt.Errorf("unknown question %q", id)
		}
		if a := answers[id]; !a.Fits(q.Type, q.Options) {
			return fmt.Errorf("answer %q does not fit question %s (%s)", a.String(), id, q.Type)
		}
	}
	return nil
}

func printScores(w io.Writer, cat *catalog.Catalog, sections map[models.Section]models.AnswerSet, breakdown bool) {
	engine := scoring.New(cat)
	bold := color.New(color.Bold)

	for _, sec := range models.SectionOrder {
		answers, ok := sections[sec]
		if !ok {
			continue
		}
		outcome := engine.Score(sec, answers)

		header := fmt.Sprintf("%s: %s", sec.Title(), strings.ToUpper(string(outcome.Level)))
		if outcome.Points != nil {
			header += fmt.Sprintf(" (%d points)", *outcome.Points)
		}
		bold.Fprintln(w, header)
		if advice, ok := cat.Guidance.For(outcome.Level); ok {
			fmt.Fprintf(w, "  %s\n", advice.Title)
		}

		if breakdown {
			printBreakdown(w, sec, engine.Breakdown(sec, answers))
		}
		fmt.Fprintln(w)
	}
}

func printBreakdown(w io.Writer, sec models.Section, lines []scoring.Line) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if sec == models.SectionPartner {
		fmt.Fprintf(tw, "  QUESTION\tANSWER\tPOINTS\n")
	} else {
		fmt.Fprintf(tw, "  QUESTION\tANSWER\tCRITICAL\n")
	}
	for _, line := range lines {
		answer := line.Answer
		if !line.Answered {
			answer = "-"
		}
		id := line.QuestionID
		if line.Sub {
			id = "  " + id
		}
		last := ""
		if sec == models.SectionPartner {
			last = fmt.Sprintf("%d/%d", line.Points, line.Max)
		} else if line.Critical {
			last = "yes"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", id, answer, last)
	}
	tw.Flush()
}
