package assessment

import (
	"github.com/harrison/bshape/internal/catalog"
	"github.com/harrison/bshape/internal/gating"
	"github.com/harrison/bshape/internal/models"
)

// SectionResult is a computed result together with its guidance.
type SectionResult struct {
	Section models.Section
	Level   models.RiskLevel
	Points  *int // partner only
	Advice  catalog.Advice
}

// StepView is everything a renderer needs to draw the current step.
type StepView struct {
	Location models.Location
	Step     int // one-based position for progress display
	Total    int

	Intake  *catalog.IntakePage // intake steps
	Section *catalog.SectionDef // intro, question and results steps

	Question        *models.Question
	Answer          *models.Answer
	ShowSubQuestion bool
	SubAnswer       *models.Answer

	// Intake answers, echoed so the renderer can show current selections.
	Concerns         []string
	LivingWith       string
	LivingPreference string
	ChangeDesc       string

	Results []SectionResult // results step: one entry; summary: every computed section

	CanNext bool
	CanBack bool
	Missing []gating.Requirement

	Submitted    bool
	SubmissionID string
}

// View describes the current step.
func (c *Controller) View() (StepView, error) {
	loc, err := c.Location()
	if err != nil {
		return StepView{}, err
	}

	s := c.session
	v := StepView{
		Location:         loc,
		Step:             loc.Step + 1,
		Total:            c.planner.TotalSteps(s.RelationshipConcerns),
		Concerns:         append([]string(nil), s.RelationshipConcerns...),
		LivingWith:       s.LivingWith,
		LivingPreference: s.LivingPreference,
		ChangeDesc:       s.LivingChangeDesc,
		CanNext:          c.CanGoNext(),
		CanBack:          c.CanGoBack(),
		Submitted:        s.Submitted,
		SubmissionID:     s.SubmissionID,
	}
	if loc.Kind != models.KindSummary {
		v.Missing = c.gate.Missing(s)
	}

	switch loc.Kind {
	case models.KindIntake:
		if page, ok := c.cat.IntakePage(loc.Intake); ok {
			v.Intake = &page
		}
	case models.KindIntro:
		v.Section = c.cat.Section(loc.Section)
	case models.KindQuestion:
		v.Section = c.cat.Section(loc.Section)
		q, ok := c.planner.Question(loc)
		if !ok {
			break
		}
		answers := s.AnswersOf(loc.Section)
		v.Question = q
		if a, ok := answers[q.ID]; ok {
			v.Answer = &a
		}
		if q.SubQuestionActive(answers) {
			v.ShowSubQuestion = true
			if a, ok := answers[q.SubQuestion.ID]; ok {
				v.SubAnswer = &a
			}
		}
	case models.KindResults:
		v.Section = c.cat.Section(loc.Section)
		if r, ok := c.result(loc.Section); ok {
			v.Results = []SectionResult{r}
		}
	case models.KindSummary:
		v.Results = c.Results()
	}

	return v, nil
}

// Results returns every computed section result in presentation order.
func (c *Controller) Results() []SectionResult {
	var out []SectionResult
	for _, sec := range models.SectionOrder {
		if r, ok := c.result(sec); ok {
			out = append(out, r)
		}
	}
	return out
}

func (c *Controller) result(sec models.Section) (SectionResult, bool) {
	level, ok := c.session.Results.Get(sec)
	if !ok {
		return SectionResult{}, false
	}
	r := SectionResult{Section: sec, Level: level}
	if sec == models.SectionPartner {
		if points, ok := c.session.Scores.PartnerPoints(); ok {
			r.Points = &points
		}
	}
	r.Advice, _ = c.cat.Guidance.For(level)
	return r, true
}
