package models

import "fmt"

// RiskLevel is the categorical output of scoring a section.
// The partner section uses the four-level scale; in-laws and family use the two-level scale.
type RiskLevel string

const (
	RiskVariable  RiskLevel = "variable"  // partner score <= 14
	RiskIncreased RiskLevel = "increased" // partner score 15-25
	RiskSevere    RiskLevel = "severe"    // partner score 26-35
	RiskExtreme   RiskLevel = "extreme"   // partner score > 35

	RiskSome RiskLevel = "some" // no critical question answered yes
	RiskHigh RiskLevel = "high" // at least one critical question answered yes
)

// Valid reports whether the level is one of the known labels.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskVariable, RiskIncreased, RiskSevere, RiskExtreme, RiskSome, RiskHigh:
		return true
	}
	return false
}

// ValidFor reports whether the level belongs to the scale the section is scored on.
func (r RiskLevel) ValidFor(s Section) bool {
	switch s {
	case SectionPartner:
		switch r {
		case RiskVariable, RiskIncreased, RiskSevere, RiskExtreme:
			return true
		}
	case SectionInLaws, SectionFamily:
		return r == RiskSome || r == RiskHigh
	}
	return false
}

// Results holds one risk level per scored section.
type Results struct {
	Partner RiskLevel `json:"partner,omitempty"`
	InLaws  RiskLevel `json:"inLaws,omitempty"`
	Family  RiskLevel `json:"family,omitempty"`
}

// Get returns the level for a section and whether it has been computed.
func (r Results) Get(s Section) (RiskLevel, bool) {
	var level RiskLevel
	switch s {
	case SectionPartner:
		level = r.Partner
	case SectionInLaws:
		level = r.InLaws
	case SectionFamily:
		level = r.Family
	}
	return level, level != ""
}

// Validate checks that every computed level is on its section's scale.
func (r Results) Validate() error {
	for _, s := range SectionOrder {
		if level, ok := r.Get(s); ok && !level.ValidFor(s) {
			return fmt.Errorf("invalid %s risk level %q", s, level)
		}
	}
	return nil
}

// Set stores the level for a section.
func (r *Results) Set(s Section, level RiskLevel) {
	switch s {
	case SectionPartner:
		r.Partner = level
	case SectionInLaws:
		r.InLaws = level
	case SectionFamily:
		r.Family = level
	}
}

// Clear removes the level for a section.
func (r *Results) Clear(s Section) {
	r.Set(s, "")
}

// Scores holds the value each result was derived from:
// a point total for the partner section, a flag for the categorical sections.
type Scores struct {
	Partner *int      `json:"partner,omitempty"`
	InLaws  RiskLevel `json:"inLaws,omitempty"`
	Family  RiskLevel `json:"family,omitempty"`
}

// PartnerPoints returns the partner total and whether it has been computed.
func (s Scores) PartnerPoints() (int, bool) {
	if s.Partner == nil {
		return 0, false
	}
	return *s.Partner, true
}

// Has reports whether a score exists for the section.
func (s Scores) Has(sec Section) bool {
	switch sec {
	case SectionPartner:
		return s.Partner != nil
	case SectionInLaws:
		return s.InLaws != ""
	case SectionFamily:
		return s.Family != ""
	}
	return false
}

// Clear removes the score for a section.
func (s *Scores) Clear(sec Section) {
	switch sec {
	case SectionPartner:
		s.Partner = nil
	case SectionInLaws:
		s.InLaws = ""
	case SectionFamily:
		s.Family = ""
	}
}
