// Package gating decides whether navigation away from the current step is allowed.
//
// Decisions depend only on the session's step, intake answers and section
// answer sets, so the same session always produces the same decision.
package gating

import (
	"strings"

	"github.com/harrison/bshape/internal/models"
	"github.com/harrison/bshape/internal/planner"
)

// Requirement names something the current step still needs before moving on.
type Requirement string

const (
	NeedConcern           Requirement = "relationship_concern"
	NeedLivingWith        Requirement = "living_with"
	NeedLivingPreference  Requirement = "living_preference"
	NeedChangeDescription Requirement = "living_change_description"
	NeedValidStep         Requirement = "valid_step"
)

// Gate evaluates navigation rules against a step plan.
type Gate struct {
	planner *planner.Planner
}

// New creates a gate backed by the planner.
func New(p *planner.Planner) *Gate {
	return &Gate{planner: p}
}

// CanGoNext reports whether forward navigation is enabled for the session's current step.
func (g *Gate) CanGoNext(s *models.Session) bool {
	return len(g.Missing(s)) == 0
}

// CanGoBack reports whether backward navigation is enabled at step.
func (g *Gate) CanGoBack(step int) bool {
	return step > 0
}

// Missing lists what blocks forward navigation from the session's current step.
// Question requirements are reported as the question or sub-question id.
func (g *Gate) Missing(s *models.Session) []Requirement {
	loc, err := g.planner.Locate(s.CurrentStep, s.RelationshipConcerns)
	if err != nil {
		return []Requirement{NeedValidStep}
	}

	switch loc.Kind {
	case models.KindIntake:
		return g.intakeMissing(loc.Intake, s)
	case models.KindQuestion:
		q, ok := g.planner.Question(loc)
		if !ok {
			return []Requirement{NeedValidStep}
		}
		return questionMissing(q, s.AnswersOf(loc.Section))
	}
	return nil
}

func (g *Gate) intakeMissing(step models.IntakeStep, s *models.Session) []Requirement {
	switch step {
	case models.IntakeRelationshipConcerns:
		if len(s.RelationshipConcerns) == 0 {
			return []Requirement{NeedConcern}
		}
	case models.IntakeLivingWith:
		if s.LivingWith == "" {
			return []Requirement{NeedLivingWith}
		}
	case models.IntakeLivingPreference:
		if s.LivingPreference == "" {
			return []Requirement{NeedLivingPreference}
		}
		opt, ok := g.planner.Catalog().Preference(s.LivingPreference)
		if ok && opt.RequiresDescription && strings.TrimSpace(s.LivingChangeDesc) == "" {
			return []Requirement{NeedChangeDescription}
		}
	}
	return nil
}

// questionMissing checks the main answer and, when its condition holds, the sub-answer.
func questionMissing(q *models.Question, answers models.AnswerSet) []Requirement {
	var missing []Requirement
	if _, ok := answers[q.ID]; !ok {
		missing = append(missing, Requirement(q.ID))
	}
	if q.SubQuestionActive(answers) {
		if _, ok := answers[q.SubQuestion.ID]; !ok {
			missing = append(missing, Requirement(q.SubQuestion.ID))
		}
	}
	return missing
}
