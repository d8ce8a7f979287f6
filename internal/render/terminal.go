// Package render draws assessment steps in a terminal and exports reports.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/bshape/internal/assessment"
	"github.com/harrison/bshape/internal/catalog"
	"github.com/harrison/bshape/internal/gating"
	"github.com/harrison/bshape/internal/models"
)

const progressWidth = 30

// Terminal writes step views as plain or colored text.
type Terminal struct {
	out   io.Writer
	cat   *catalog.Catalog
	color bool
}

// NewTerminal returns a renderer for w. Color is used only when w is a terminal.
func NewTerminal(w io.Writer, cat *catalog.Catalog) *Terminal {
	return &Terminal{out: w, cat: cat, color: colorEnabled(w)}
}

// SetColor overrides terminal detection.
func (t *Terminal) SetColor(enabled bool) {
	t.color = enabled
}

func colorEnabled(w io.Writer) bool {
	if color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (t *Terminal) paint(s string, attrs ...color.Attribute) string {
	if !t.color {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

func (t *Terminal) printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}

// Step draws one step view.
func (t *Terminal) Step(v assessment.StepView) {
	t.printf("\n")
	if v.Step > 1 {
		t.printf("%s\n\n", NewProgressBar(v.Step, v.Total, progressWidth, t.color).Render())
	}

	switch v.Location.Kind {
	case models.KindIntake:
		t.intake(v)
	case models.KindIntro:
		t.intro(v)
	case models.KindQuestion:
		t.question(v)
	case models.KindResults:
		for _, r := range v.Results {
			t.RiskCard(r)
		}
	case models.KindSummary:
		t.summary(v)
	}

	t.printf("\n%s\n", t.paint(hint(v), color.Faint))
}

// Refused explains why a forward move was not allowed.
func (t *Terminal) Refused(missing []gating.Requirement) {
	if len(missing) == 0 {
		return
	}
	phrases := make([]string, 0, len(missing))
	for _, m := range missing {
		phrases = append(phrases, describeRequirement(m))
	}
	t.printf("%s %s\n", t.paint("Before continuing:", color.FgYellow), strings.Join(phrases, "; "))
}

func (t *Terminal) heading(s string) {
	t.printf("%s\n", t.paint(s, color.Bold))
}

func (t *Terminal) intake(v assessment.StepView) {
	if v.Intake == nil {
		return
	}
	t.heading(v.Intake.Title)
	if body := strings.TrimSpace(v.Intake.Body); body != "" {
		t.printf("%s\n", body)
	}

	switch v.Intake.Step {
	case models.IntakeRelationshipConcerns:
		selected := make(map[string]bool, len(v.Concerns))
		for _, c := range v.Concerns {
			selected[c] = true
		}
		t.printf("\n")
		for i, opt := range t.cat.Concerns {
			t.printf("  %s %d. %s\n", checkbox(selected[opt.Label]), i+1, opt.Label)
		}
	case models.IntakeLivingWith:
		t.printf("\n")
		for i, opt := range t.cat.LivingWith {
			t.printf("  %s %d. %s\n", radio(opt == v.LivingWith), i+1, opt)
		}
	case models.IntakeLivingPreference:
		t.printf("\n")
		var chosen catalog.PreferenceOption
		for i, opt := range t.cat.LivingPreferences {
			if opt.Label == v.LivingPreference {
				chosen = opt
			}
			t.printf("  %s %d. %s\n", radio(opt.Label == v.LivingPreference), i+1, opt.Label)
		}
		if chosen.RequiresDescription {
			t.printf("\n%s\n", chosen.DescriptionPrompt)
			if v.ChangeDesc != "" {
				t.printf("  > %s\n", v.ChangeDesc)
			}
		}
	}
}

func (t *Terminal) intro(v assessment.StepView) {
	if v.Section == nil {
		return
	}
	t.heading(v.Section.Title)
	if intro := strings.TrimSpace(v.Section.Intro); intro != "" {
		t.printf("%s\n", intro)
	}
}

func (t *Terminal) question(v assessment.StepView) {
	if v.Question == nil {
		return
	}
	title := fmt.Sprintf("Question %d", v.Location.Index+1)
	if v.Section != nil {
		title = fmt.Sprintf("%s: Question %d of %d", v.Section.Title, v.Location.Index+1, v.Section.Len())
	}
	t.heading(title)
	t.printf("%s\n  %s\n", v.Question.Text, answerLabel(v.Answer))

	if v.ShowSubQuestion && v.Question.SubQuestion != nil {
		t.printf("\n  %s\n    %s\n", v.Question.SubQuestion.Text, answerLabel(v.SubAnswer))
	}
}

func (t *Terminal) summary(v assessment.StepView) {
	t.heading("Your BSHAPE Summary")
	if len(v.Results) == 0 {
		t.printf("No relationship sections were assessed.\n")
	}
	for _, r := range v.Results {
		t.RiskCard(r)
	}
	if v.Submitted {
		t.printf("\n%s %s\n", t.paint("Assessment submitted.", color.FgGreen), "Reference: "+v.SubmissionID)
	} else {
		t.printf("\n%s\n", t.paint("Assessment not yet submitted.", color.FgYellow))
	}
}

// RiskCard draws one section result with its guidance.
func (t *Terminal) RiskCard(r assessment.SectionResult) {
	attrs := levelColor(r.Level)

	t.printf("\n")
	header := fmt.Sprintf("%s: %s", r.Section.Title(), strings.ToUpper(string(r.Level)))
	if r.Points != nil {
		header += fmt.Sprintf(" (%d points)", *r.Points)
	}
	t.printf("%s\n", t.paint(header, append(attrs, color.Bold)...))

	if r.Advice.Title == "" {
		return
	}
	t.printf("%s\n", t.paint(r.Advice.Title, attrs...))
	if r.Advice.Subtitle != "" {
		t.printf("%s\n", r.Advice.Subtitle)
	}
	if r.Advice.Description != "" {
		t.printf("%s\n", r.Advice.Description)
	}
	for _, action := range r.Advice.Actions {
		t.printf("  - %s\n", action)
	}
}

// Message prints an informational line.
func (t *Terminal) Message(msg string) {
	t.printf("%s\n", msg)
}

// Error prints an error line.
func (t *Terminal) Error(msg string) {
	t.printf("%s\n", t.paint(msg, color.FgRed))
}

func levelColor(level models.RiskLevel) []color.Attribute {
	switch level {
	case models.RiskVariable, models.RiskSome:
		return []color.Attribute{color.FgGreen}
	case models.RiskIncreased:
		return []color.Attribute{color.FgYellow}
	case models.RiskSevere, models.RiskHigh:
		return []color.Attribute{color.FgRed}
	case models.RiskExtreme:
		return []color.Attribute{color.FgMagenta}
	}
	return nil
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func radio(on bool) string {
	if on {
		return "(*)"
	}
	return "( )"
}

func answerLabel(a *models.Answer) string {
	if a == nil {
		return "Answer: (none)"
	}
	if v, ok := a.Bool(); ok {
		if v {
			return "Answer: Yes"
		}
		return "Answer: No"
	}
	return "Answer: " + a.String()
}

func describeRequirement(r gating.Requirement) string {
	switch r {
	case gating.NeedConcern:
		return "select at least one relationship"
	case gating.NeedLivingWith:
		return "choose who you live with"
	case gating.NeedLivingPreference:
		return "choose a living preference"
	case gating.NeedChangeDescription:
		return "describe the change you would like"
	case gating.NeedValidStep:
		return "return to a valid step"
	}
	return "answer question " + string(r)
}

func hint(v assessment.StepView) string {
	switch v.Location.Kind {
	case models.KindIntake:
		if v.Intake == nil {
			break
		}
		switch v.Intake.Step {
		case models.IntakeRelationshipConcerns:
			return "Enter numbers separated by commas (e.g. 1,3), enter to continue, < back, q quit"
		case models.IntakeLivingWith:
			return "Enter a number, enter to continue, < back, q quit"
		case models.IntakeLivingPreference:
			return "Enter a number, then describe the change if asked; enter to continue, < back, q quit"
		}
	case models.KindQuestion:
		if v.ShowSubQuestion {
			return "y/n answers the question, sub y/n answers the follow-up; enter to continue, < back, q quit"
		}
		return "y/n to answer, enter to continue, < back, q quit"
	case models.KindSummary:
		if !v.Submitted {
			return "r retry submission, < back, q quit"
		}
		return "< back, q quit"
	}
	return "Enter to continue, < back, q quit"
}
