package models

import (
	"errors"
	"fmt"
)

// Section identifies one of the three relationship categories assessed.
type Section int

const (
	// SectionNone is the zero value returned for steps outside any section.
	SectionNone Section = iota
	// SectionPartner covers a current or former husband or partner.
	SectionPartner
	// SectionInLaws covers the user's in-laws.
	SectionInLaws
	// SectionFamily covers other family members.
	SectionFamily
)

// SectionOrder is the fixed order in which active sections are presented.
var SectionOrder = []Section{SectionPartner, SectionInLaws, SectionFamily}

// String returns the catalog key of the section.
func (s Section) String() string {
	switch s {
	case SectionPartner:
		return "partner"
	case SectionInLaws:
		return "inlaws"
	case SectionFamily:
		return "family"
	default:
		return ""
	}
}

// Title returns the human-readable heading for the section.
func (s Section) Title() string {
	switch s {
	case SectionPartner:
		return "Husband or partner"
	case SectionInLaws:
		return "In-laws"
	case SectionFamily:
		return "Other family members"
	default:
		return ""
	}
}

// ParseSection converts a catalog key into a Section.
func ParseSection(key string) (Section, error) {
	switch key {
	case "partner":
		return SectionPartner, nil
	case "inlaws", "in-laws", "in_laws":
		return SectionInLaws, nil
	case "family":
		return SectionFamily, nil
	default:
		return SectionNone, fmt.Errorf("unknown section %q", key)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Section) MarshalText() ([]byte, error) {
	if s == SectionNone {
		return nil, errors.New("cannot marshal empty section")
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Section) UnmarshalText(text []byte) error {
	parsed, err := ParseSection(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// AnswerType describes the widget a question is answered with.
type AnswerType string

const (
	AnswerYesNo        AnswerType = "yes_no"        // boolean yes/no
	AnswerMultiSelect  AnswerType = "multi_select"  // any subset of Options
	AnswerSingleSelect AnswerType = "single_select" // exactly one of Options
	AnswerText         AnswerType = "text"          // free text
)

// Valid reports whether the answer type is one of the known types.
func (t AnswerType) Valid() bool {
	switch t {
	case AnswerYesNo, AnswerMultiSelect, AnswerSingleSelect, AnswerText:
		return true
	}
	return false
}

// Condition decides when a sub-question is presented and required.
type Condition string

const (
	OnTrue  Condition = "on_true"  // parent answered yes
	OnFalse Condition = "on_false" // parent answered no
	Always  Condition = "always"   // parent answered either way
)

// Valid reports whether the condition is one of the known conditions.
func (c Condition) Valid() bool {
	switch c {
	case OnTrue, OnFalse, Always:
		return true
	}
	return false
}

// SatisfiedBy reports whether the parent's answer triggers the sub-question.
// An absent parent answer never triggers anything.
func (c Condition) SatisfiedBy(parent Answer, present bool) bool {
	if !present {
		return false
	}
	switch c {
	case OnTrue:
		return parent.IsTrue()
	case OnFalse:
		return parent.IsFalse()
	case Always:
		return true
	}
	return false
}

// Weight is the scoring rule attached to a question.
type Weight struct {
	OnTrue  int  `yaml:"on_true,omitempty" json:"on_true,omitempty"`   // points when answered exactly true
	OnFalse int  `yaml:"on_false,omitempty" json:"on_false,omitempty"` // points when answered exactly false
	Offsets bool `yaml:"offsets_parent,omitempty" json:"offsets_parent,omitempty"`
}

// Max returns the largest contribution the rule can make.
func (w Weight) Max() int {
	if w.Offsets {
		return 0
	}
	if w.OnFalse > w.OnTrue {
		return w.OnFalse
	}
	return w.OnTrue
}

// Question is a single prompt within a section.
type Question struct {
	ID          string       // Identifier, unique within its section
	Text        string       // Prompt shown to the user
	Type        AnswerType   // How the question is answered
	Options     []string     // Fixed options for select types
	Weight      Weight       // Scoring rule (zero value = not scored)
	Critical    bool         // Any true answer marks the section high risk (categorical sections)
	SubQuestion *SubQuestion // Optional conditional follow-up
}

// SubQuestion is a follow-up question gated on its parent's answer.
type SubQuestion struct {
	Question
	Condition Condition
}

// Validate checks that the question is well formed.
func (q *Question) Validate() error {
	if q.ID == "" {
		return errors.New("question id is required")
	}
	if q.Text == "" {
		return fmt.Errorf("question %s: text is required", q.ID)
	}
	if !q.Type.Valid() {
		return fmt.Errorf("question %s: unknown answer type %q", q.ID, q.Type)
	}
	if (q.Type == AnswerMultiSelect || q.Type == AnswerSingleSelect) && len(q.Options) == 0 {
		return fmt.Errorf("question %s: %s requires options", q.ID, q.Type)
	}
	if q.SubQuestion != nil {
		if q.SubQuestion.SubQuestion != nil {
			return fmt.Errorf("question %s: sub-questions cannot be nested", q.ID)
		}
		if !q.SubQuestion.Condition.Valid() {
			return fmt.Errorf("question %s: unknown sub-question condition %q", q.ID, q.SubQuestion.Condition)
		}
		if q.SubQuestion.Condition != Always && q.Type != AnswerYesNo {
			return fmt.Errorf("question %s: condition %q needs a yes/no parent", q.ID, q.SubQuestion.Condition)
		}
		if err := q.SubQuestion.Question.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SubQuestionActive reports whether the sub-question applies given the section's answers.
func (q *Question) SubQuestionActive(answers AnswerSet) bool {
	if q.SubQuestion == nil {
		return false
	}
	main, ok := answers[q.ID]
	return q.SubQuestion.Condition.SatisfiedBy(main, ok)
}
