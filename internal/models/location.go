package models

import "fmt"

// IntakeStep tags the fixed steps before any section begins.
type IntakeStep int

const (
	IntakeWelcome IntakeStep = iota
	IntakeStrengths
	IntakePersonalizedHelp
	IntakeRelationshipConcerns
	IntakeLivingWith
	IntakeLivingPreference
	IntakeWarningSigns

	// IntakeStepCount is the number of intake steps (0-6).
	IntakeStepCount = 7
)

// String returns the catalog key of the intake step.
func (s IntakeStep) String() string {
	switch s {
	case IntakeWelcome:
		return "welcome"
	case IntakeStrengths:
		return "strengths"
	case IntakePersonalizedHelp:
		return "personalized_help"
	case IntakeRelationshipConcerns:
		return "relationship_concerns"
	case IntakeLivingWith:
		return "living_with"
	case IntakeLivingPreference:
		return "living_preference"
	case IntakeWarningSigns:
		return "warning_signs"
	default:
		return fmt.Sprintf("intake_%d", int(s))
	}
}

// LocationKind is the kind of page a step index maps to.
type LocationKind int

const (
	KindIntake LocationKind = iota
	KindIntro
	KindQuestion
	KindResults
	KindSummary
)

// String returns a short name for the kind.
func (k LocationKind) String() string {
	switch k {
	case KindIntake:
		return "intake"
	case KindIntro:
		return "intro"
	case KindQuestion:
		return "question"
	case KindResults:
		return "results"
	case KindSummary:
		return "final-summary"
	default:
		return "unknown"
	}
}

// Location is the semantic position a flat step index maps to.
type Location struct {
	Step    int          // Flat step index
	Kind    LocationKind // Page kind
	Intake  IntakeStep   // Set when Kind == KindIntake
	Section Section      // Set for intro, question, and results
	Index   int          // Zero-based question index when Kind == KindQuestion
}

// String renders the location for logs and the plan command.
func (l Location) String() string {
	switch l.Kind {
	case KindIntake:
		return fmt.Sprintf("intake:%s", l.Intake)
	case KindIntro, KindResults:
		return fmt.Sprintf("%s:%s", l.Section, l.Kind)
	case KindQuestion:
		return fmt.Sprintf("%s:question:%d", l.Section, l.Index+1)
	default:
		return l.Kind.String()
	}
}
