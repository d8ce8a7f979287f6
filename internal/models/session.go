package models

import (
	"time"
)

// Session is the root aggregate of one assessment run.
type Session struct {
	ID                   string     `json:"userId"`
	CurrentStep          int        `json:"currentStep"`
	RelationshipConcerns []string   `json:"relationshipConcerns"`
	LivingWith           string     `json:"livingWith"`
	LivingPreference     string     `json:"livingPreference"`
	LivingChangeDesc     string     `json:"livingChangeDescription,omitempty"`
	PartnerAnswers       AnswerSet  `json:"partnerQuestions"`
	InLawsAnswers        AnswerSet  `json:"inLawsQuestions"`
	FamilyAnswers        AnswerSet  `json:"familyQuestions"`
	Scores               Scores     `json:"scores"`
	Results              Results    `json:"results"`
	StartedAt            time.Time  `json:"startedAt"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
	Submitted            bool       `json:"submitted,omitempty"`
	SubmissionID         string     `json:"submissionId,omitempty"`
}

// NewSession returns a session with every field empty and the answer sets allocated.
func NewSession(id string, startedAt time.Time) *Session {
	return &Session{
		ID:                   id,
		RelationshipConcerns: []string{},
		PartnerAnswers:       AnswerSet{},
		InLawsAnswers:        AnswerSet{},
		FamilyAnswers:        AnswerSet{},
		StartedAt:            startedAt,
	}
}

// Answers returns the answer set for a section, allocating it if needed.
func (s *Session) Answers(sec Section) AnswerSet {
	switch sec {
	case SectionPartner:
		if s.PartnerAnswers == nil {
			s.PartnerAnswers = AnswerSet{}
		}
		return s.PartnerAnswers
	case SectionInLaws:
		if s.InLawsAnswers == nil {
			s.InLawsAnswers = AnswerSet{}
		}
		return s.InLawsAnswers
	case SectionFamily:
		if s.FamilyAnswers == nil {
			s.FamilyAnswers = AnswerSet{}
		}
		return s.FamilyAnswers
	}
	return nil
}

// AnswersOf returns the answer set for a section without allocating.
func (s *Session) AnswersOf(sec Section) AnswerSet {
	switch sec {
	case SectionPartner:
		return s.PartnerAnswers
	case SectionInLaws:
		return s.InLawsAnswers
	case SectionFamily:
		return s.FamilyAnswers
	}
	return nil
}

// Invalidate clears the derived result and score of a section.
func (s *Session) Invalidate(sec Section) {
	s.Results.Clear(sec)
	s.Scores.Clear(sec)
}

// Clone returns a deep copy suitable for handing to collaborators.
func (s *Session) Clone() *Session {
	out := *s
	out.RelationshipConcerns = append([]string(nil), s.RelationshipConcerns...)
	if s.RelationshipConcerns != nil && out.RelationshipConcerns == nil {
		out.RelationshipConcerns = []string{}
	}
	out.PartnerAnswers = s.PartnerAnswers.Clone()
	out.InLawsAnswers = s.InLawsAnswers.Clone()
	out.FamilyAnswers = s.FamilyAnswers.Clone()
	if s.Scores.Partner != nil {
		p := *s.Scores.Partner
		out.Scores.Partner = &p
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
