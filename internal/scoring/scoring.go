// Package scoring turns a section's answers into a risk level.
//
// The partner section is a weighted sum of catalog weights mapped onto four
// levels. The in-laws and family sections are categorical: any critical
// question answered yes means high risk. All functions are pure and accept
// partial answer sets; a missing answer never scores.
package scoring

import (
	"github.com/harrison/bshape/internal/catalog"
	"github.com/harrison/bshape/internal/models"
)

// Partner score thresholds (inclusive upper bounds).
const (
	VariableMax  = 14
	IncreasedMax = 25
	SevereMax    = 35
)

// Outcome is the result of scoring one section.
type Outcome struct {
	Section models.Section
	Level   models.RiskLevel
	Points  *int // set for the weighted partner section only
}

// Line is one row of a score breakdown.
type Line struct {
	QuestionID string
	Text       string
	Answer     string // display form, empty when unanswered
	Answered   bool
	Sub        bool // row describes a sub-question
	Points     int  // points awarded (negative when cancelling a parent)
	Max        int  // most points the question can award
	Critical   bool // critical question answered yes
}

// Engine scores answer sets against the catalog weights.
type Engine struct {
	cat *catalog.Catalog
}

// New creates a scoring engine for the catalog.
func New(cat *catalog.Catalog) *Engine {
	return &Engine{cat: cat}
}

// PartnerScore returns the weighted partner total.
func (e *Engine) PartnerScore(answers models.AnswerSet) int {
	total := 0
	for _, line := range e.Breakdown(models.SectionPartner, answers) {
		total += line.Points
	}
	return total
}

// PartnerRiskLevel maps a partner total onto the four-level scale.
func PartnerRiskLevel(score int) models.RiskLevel {
	switch {
	case score <= VariableMax:
		return models.RiskVariable
	case score <= IncreasedMax:
		return models.RiskIncreased
	case score <= SevereMax:
		return models.RiskSevere
	default:
		return models.RiskExtreme
	}
}

// CategoricalRiskLevel returns high when any critical question in the section is answered yes.
func (e *Engine) CategoricalRiskLevel(sec models.Section, answers models.AnswerSet) models.RiskLevel {
	for _, line := range e.Breakdown(sec, answers) {
		if line.Critical {
			return models.RiskHigh
		}
	}
	return models.RiskSome
}

// Score scores a section with the rule that applies to it.
func (e *Engine) Score(sec models.Section, answers models.AnswerSet) Outcome {
	if sec == models.SectionPartner {
		points := e.PartnerScore(answers)
		return Outcome{Section: sec, Level: PartnerRiskLevel(points), Points: &points}
	}
	return Outcome{Section: sec, Level: e.CategoricalRiskLevel(sec, answers)}
}

// Apply scores a section of the session and stores its result and score.
func (e *Engine) Apply(s *models.Session, sec models.Section) Outcome {
	out := e.Score(sec, s.AnswersOf(sec))
	s.Results.Set(sec, out.Level)
	switch sec {
	case models.SectionPartner:
		s.Scores.Partner = out.Points
	case models.SectionInLaws:
		s.Scores.InLaws = out.Level
	case models.SectionFamily:
		s.Scores.Family = out.Level
	}
	return out
}

// Breakdown returns one line per question and one per presented sub-question, in catalog order.
// Sub-questions whose condition the parent answer does not satisfy are left out.
func (e *Engine) Breakdown(sec models.Section, answers models.AnswerSet) []Line {
	questions := e.cat.Questions(sec)
	lines := make([]Line, 0, len(questions))

	for i := range questions {
		q := &questions[i]
		main := lineFor(q, answers, false)
		lines = append(lines, main)

		if !q.SubQuestionActive(answers) {
			continue
		}
		sub := lineFor(&q.SubQuestion.Question, answers, true)
		if q.SubQuestion.Weight.Offsets {
			sub.Points = 0
			if a, ok := answers[q.SubQuestion.ID]; ok && a.IsTrue() {
				sub.Points = -main.Points
			}
		}
		lines = append(lines, sub)
	}

	return lines
}

func lineFor(q *models.Question, answers models.AnswerSet, sub bool) Line {
	line := Line{
		QuestionID: q.ID,
		Text:       q.Text,
		Sub:        sub,
		Max:        q.Weight.Max(),
	}
	a, ok := answers[q.ID]
	if !ok {
		return line
	}
	line.Answered = true
	line.Answer = a.String()
	line.Points = award(q.Weight, a)
	line.Critical = q.Critical && a.IsTrue()
	return line
}

// award applies a weight to an answer; only exact booleans score.
func award(w models.Weight, a models.Answer) int {
	switch {
	case w.Offsets:
		return 0
	case a.IsTrue():
		return w.OnTrue
	case a.IsFalse():
		return w.OnFalse
	}
	return 0
}
