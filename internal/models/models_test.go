package models

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestAnswerFits(t *testing.T) {
	options := []string{"a", "b"}
	tests := []struct {
		name   string
		answer Answer
		typ    AnswerType
		want   bool
	}{
		{"yes fits yes_no", Yes(), AnswerYesNo, true},
		{"no fits yes_no", No(), AnswerYesNo, true},
		{"text does not fit yes_no", TextAnswer("yes"), AnswerYesNo, false},
		{"zero value fits nothing", Answer{}, AnswerYesNo, false},
		{"text fits text", TextAnswer("anything"), AnswerText, true},
		{"known option fits single select", TextAnswer("a"), AnswerSingleSelect, true},
		{"unknown option does not fit single select", TextAnswer("c"), AnswerSingleSelect, false},
		{"known options fit multi select", ChoicesAnswer([]string{"a", "b"}), AnswerMultiSelect, true},
		{"empty selection fits multi select", ChoicesAnswer(nil), AnswerMultiSelect, true},
		{"unknown option does not fit multi select", ChoicesAnswer([]string{"a", "z"}), AnswerMultiSelect, false},
		{"unknown type", Yes(), AnswerType("slider"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.answer.Fits(tt.typ, options); got != tt.want {
				t.Errorf("Fits() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnswerAccessors(t *testing.T) {
	if !Yes().IsTrue() || Yes().IsFalse() {
		t.Error("Yes() should be exactly true")
	}
	if !No().IsFalse() || No().IsTrue() {
		t.Error("No() should be exactly false")
	}
	if TextAnswer("true").IsTrue() {
		t.Error("text answer must not count as true")
	}
	if (Answer{}).Valid() {
		t.Error("zero answer should be invalid")
	}

	src := []string{"a", "b"}
	a := ChoicesAnswer(src)
	src[0] = "changed"
	got, ok := a.Choices()
	if !ok || got[0] != "a" {
		t.Errorf("Choices() = %v, %v; constructor should copy its input", got, ok)
	}
	got[1] = "changed"
	if again, _ := a.Choices(); again[1] != "b" {
		t.Error("Choices() should return a copy")
	}

	if s := ChoicesAnswer([]string{"x", "y"}).String(); s != "x, y" {
		t.Errorf("String() = %q", s)
	}
	if s := No().String(); s != "No" {
		t.Errorf("String() = %q", s)
	}
}

func TestAnswerJSON(t *testing.T) {
	set := AnswerSet{
		"1":  Yes(),
		"2":  No(),
		"3":  TextAnswer("free text"),
		"4":  ChoicesAnswer([]string{"a"}),
		"6a": BoolAnswer(true),
	}
	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if raw["1"] != true || raw["2"] != false || raw["3"] != "free text" {
		t.Errorf("answers should encode as bare values, got %s", data)
	}

	var decoded AnswerSet
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !decoded["1"].IsTrue() || !decoded["2"].IsFalse() {
		t.Errorf("booleans did not survive: %v", decoded)
	}
	if text, ok := decoded["3"].Text(); !ok || text != "free text" {
		t.Errorf("text answer = %q, %v", text, ok)
	}

	if _, err := json.Marshal(Answer{}); err == nil {
		t.Error("marshalling the zero answer should fail")
	}
	var bad Answer
	if err := json.Unmarshal([]byte(`12`), &bad); err == nil {
		t.Error("numbers are not answers")
	}
}

func TestAnswerYAML(t *testing.T) {
	var set AnswerSet
	input := "\"1\": true\n\"2\": no\n\"3\": [a, b]\n\"4\": some words\n"
	if err := yaml.Unmarshal([]byte(input), &set); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !set["1"].IsTrue() {
		t.Errorf("1 = %v, want yes", set["1"])
	}
	if !set["2"].IsFalse() {
		t.Errorf("2 = %v, want no", set["2"])
	}
	if choices, ok := set["3"].Choices(); !ok || len(choices) != 2 {
		t.Errorf("3 = %v, want two choices", set["3"])
	}
	if text, ok := set["4"].Text(); !ok || text != "some words" {
		t.Errorf("4 = %v, want text", set["4"])
	}
}

func TestConditionSatisfiedBy(t *testing.T) {
	tests := []struct {
		cond    Condition
		parent  Answer
		present bool
		want    bool
	}{
		{OnTrue, Yes(), true, true},
		{OnTrue, No(), true, false},
		{OnFalse, No(), true, true},
		{OnFalse, Yes(), true, false},
		{Always, No(), true, true},
		{Always, Yes(), false, false},
		{OnTrue, TextAnswer("yes"), true, false},
		{Condition("sometimes"), Yes(), true, false},
	}

	for _, tt := range tests {
		if got := tt.cond.SatisfiedBy(tt.parent, tt.present); got != tt.want {
			t.Errorf("%s.SatisfiedBy(%v, %v) = %v, want %v", tt.cond, tt.parent, tt.present, got, tt.want)
		}
	}
}

func TestWeightMax(t *testing.T) {
	tests := []struct {
		weight Weight
		want   int
	}{
		{Weight{}, 0},
		{Weight{OnTrue: 3}, 3},
		{Weight{OnFalse: 5}, 5},
		{Weight{OnTrue: 1, OnFalse: 2}, 2},
		{Weight{Offsets: true}, 0},
	}
	for _, tt := range tests {
		if got := tt.weight.Max(); got != tt.want {
			t.Errorf("%+v.Max() = %d, want %d", tt.weight, got, tt.want)
		}
	}
}

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       Question
		wantErr bool
	}{
		{"valid", Question{ID: "1", Text: "q", Type: AnswerYesNo}, false},
		{"missing id", Question{Text: "q", Type: AnswerYesNo}, true},
		{"missing text", Question{ID: "1", Type: AnswerYesNo}, true},
		{"unknown type", Question{ID: "1", Text: "q", Type: "slider"}, true},
		{"select without options", Question{ID: "1", Text: "q", Type: AnswerSingleSelect}, true},
		{
			name: "valid sub-question",
			q: Question{ID: "6", Text: "q", Type: AnswerYesNo, SubQuestion: &SubQuestion{
				Question:  Question{ID: "6a", Text: "sub", Type: AnswerYesNo},
				Condition: Always,
			}},
		},
		{
			name: "unknown condition",
			q: Question{ID: "6", Text: "q", Type: AnswerYesNo, SubQuestion: &SubQuestion{
				Question:  Question{ID: "6a", Text: "sub", Type: AnswerYesNo},
				Condition: "maybe",
			}},
			wantErr: true,
		},
		{
			name: "on_true needs yes/no parent",
			q: Question{ID: "6", Text: "q", Type: AnswerText, SubQuestion: &SubQuestion{
				Question:  Question{ID: "6a", Text: "sub", Type: AnswerYesNo},
				Condition: OnTrue,
			}},
			wantErr: true,
		},
		{
			name: "nested sub-questions",
			q: Question{ID: "6", Text: "q", Type: AnswerYesNo, SubQuestion: &SubQuestion{
				Question: Question{ID: "6a", Text: "sub", Type: AnswerYesNo, SubQuestion: &SubQuestion{
					Question:  Question{ID: "6b", Text: "subsub", Type: AnswerYesNo},
					Condition: Always,
				}},
				Condition: Always,
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubQuestionActive(t *testing.T) {
	q := Question{ID: "11", Text: "q", Type: AnswerYesNo, SubQuestion: &SubQuestion{
		Question:  Question{ID: "11a", Text: "sub", Type: AnswerYesNo},
		Condition: OnTrue,
	}}

	if q.SubQuestionActive(AnswerSet{}) {
		t.Error("unanswered parent should not activate the sub-question")
	}
	if q.SubQuestionActive(AnswerSet{"11": No()}) {
		t.Error("no should not activate an on_true sub-question")
	}
	if !q.SubQuestionActive(AnswerSet{"11": Yes()}) {
		t.Error("yes should activate an on_true sub-question")
	}
	plain := Question{ID: "1", Text: "q", Type: AnswerYesNo}
	if plain.SubQuestionActive(AnswerSet{"1": Yes()}) {
		t.Error("a question without a sub-question has nothing to activate")
	}
}

func TestSectionParsing(t *testing.T) {
	for _, sec := range SectionOrder {
		parsed, err := ParseSection(sec.String())
		if err != nil || parsed != sec {
			t.Errorf("ParseSection(%q) = %v, %v", sec.String(), parsed, err)
		}
		if sec.Title() == "" {
			t.Errorf("%s has no title", sec)
		}
	}
	if sec, err := ParseSection("in-laws"); err != nil || sec != SectionInLaws {
		t.Errorf("ParseSection(in-laws) = %v, %v", sec, err)
	}
	if _, err := ParseSection("neighbours"); err == nil {
		t.Error("unknown section should fail")
	}
	if _, err := SectionNone.MarshalText(); err == nil {
		t.Error("the empty section should not marshal")
	}

	var sec Section
	if err := sec.UnmarshalText([]byte("family")); err != nil || sec != SectionFamily {
		t.Errorf("UnmarshalText(family) = %v, %v", sec, err)
	}
}

func TestLocationString(t *testing.T) {
	tests := []struct {
		loc  Location
		want string
	}{
		{Location{Step: 3, Kind: KindIntake, Intake: IntakeRelationshipConcerns}, "intake:relationship_concerns"},
		{Location{Step: 7, Kind: KindIntro, Section: SectionPartner}, "partner:intro"},
		{Location{Step: 9, Kind: KindQuestion, Section: SectionPartner, Index: 1}, "partner:question:2"},
		{Location{Step: 35, Kind: KindResults, Section: SectionPartner}, "partner:results"},
		{Location{Step: 36, Kind: KindSummary}, "final-summary"},
		{Location{Kind: KindIntake, Intake: IntakeStep(12)}, "intake:intake_12"},
	}
	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestResultsAndScores(t *testing.T) {
	var r Results
	if _, ok := r.Get(SectionPartner); ok {
		t.Error("empty results should report nothing computed")
	}
	r.Set(SectionInLaws, RiskHigh)
	if level, ok := r.Get(SectionInLaws); !ok || level != RiskHigh {
		t.Errorf("Get(inlaws) = %v, %v", level, ok)
	}
	r.Clear(SectionInLaws)
	if _, ok := r.Get(SectionInLaws); ok {
		t.Error("Clear should remove the level")
	}

	var s Scores
	if s.Has(SectionPartner) {
		t.Error("no partner score yet")
	}
	points := 12
	s.Partner = &points
	s.Family = RiskSome
	if got, ok := s.PartnerPoints(); !ok || got != 12 {
		t.Errorf("PartnerPoints() = %d, %v", got, ok)
	}
	if !s.Has(SectionFamily) {
		t.Error("family score should be present")
	}
	s.Clear(SectionPartner)
	if s.Has(SectionPartner) {
		t.Error("Clear should remove the partner score")
	}

	for _, level := range []RiskLevel{RiskVariable, RiskIncreased, RiskSevere, RiskExtreme, RiskSome, RiskHigh} {
		if !level.Valid() {
			t.Errorf("%s should be valid", level)
		}
	}
	if RiskLevel("moderate").Valid() {
		t.Error("unknown level should be invalid")
	}
}

func TestRiskLevelValidFor(t *testing.T) {
	tests := []struct {
		level   RiskLevel
		section Section
		want    bool
	}{
		{RiskVariable, SectionPartner, true},
		{RiskExtreme, SectionPartner, true},
		{RiskHigh, SectionPartner, false},
		{RiskSome, SectionInLaws, true},
		{RiskHigh, SectionFamily, true},
		{RiskVariable, SectionInLaws, false},
		{RiskSevere, SectionFamily, false},
		{RiskLevel("forged-1"), SectionPartner, false},
		{RiskLevel(""), SectionFamily, false},
	}

	for _, tt := range tests {
		if got := tt.level.ValidFor(tt.section); got != tt.want {
			t.Errorf("%q.ValidFor(%s) = %v, want %v", tt.level, tt.section, got, tt.want)
		}
	}
}

func TestResultsValidate(t *testing.T) {
	tests := []struct {
		name    string
		results Results
		wantErr bool
	}{
		{name: "empty", results: Results{}},
		{name: "all sections on their scales", results: Results{Partner: RiskSevere, InLaws: RiskSome, Family: RiskHigh}},
		{name: "unknown partner level", results: Results{Partner: "forged-1"}, wantErr: true},
		{name: "partner scale in the in-laws slot", results: Results{InLaws: RiskVariable}, wantErr: true},
		{name: "categorical scale in the partner slot", results: Results{Partner: RiskHigh}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.results.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionCloneIsDeep(t *testing.T) {
	started := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	completed := started.Add(time.Hour)
	points := 20

	s := NewSession("session-1", started)
	s.RelationshipConcerns = []string{"My in-laws"}
	s.PartnerAnswers["1"] = Yes()
	s.Scores.Partner = &points
	s.CompletedAt = &completed

	c := s.Clone()
	c.RelationshipConcerns[0] = "changed"
	c.PartnerAnswers["1"] = No()
	*c.Scores.Partner = 0
	*c.CompletedAt = started

	if s.RelationshipConcerns[0] != "My in-laws" {
		t.Error("concerns are shared with the clone")
	}
	if !s.PartnerAnswers["1"].IsTrue() {
		t.Error("answers are shared with the clone")
	}
	if *s.Scores.Partner != 20 {
		t.Error("partner score is shared with the clone")
	}
	if !s.CompletedAt.Equal(completed) {
		t.Error("completion time is shared with the clone")
	}

	empty := NewSession("session-2", started).Clone()
	if empty.RelationshipConcerns == nil {
		t.Error("an empty concern list should stay non-nil so it encodes as []")
	}
}

func TestSessionAnswersAllocates(t *testing.T) {
	s := &Session{}
	if s.AnswersOf(SectionFamily) != nil {
		t.Error("AnswersOf should not allocate")
	}
	s.Answers(SectionFamily)["1"] = Yes()
	if !s.FamilyAnswers["1"].IsTrue() {
		t.Error("Answers should allocate and return the live set")
	}
	if s.Answers(SectionNone) != nil {
		t.Error("no answer set for SectionNone")
	}

	s.Results.Set(SectionFamily, RiskSome)
	s.Scores.Family = RiskSome
	s.Invalidate(SectionFamily)
	if s.Scores.Has(SectionFamily) {
		t.Error("Invalidate should clear the score")
	}
	if _, ok := s.Results.Get(SectionFamily); ok {
		t.Error("Invalidate should clear the result")
	}
}

func TestSessionJSONFieldNames(t *testing.T) {
	s := NewSession("user-1", time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"userId", "currentStep", "relationshipConcerns", "livingWith", "livingPreference", "partnerQuestions", "inLawsQuestions", "familyQuestions", "scores", "results", "startedAt"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("encoded session lacks %q: %s", key, data)
		}
	}
	if _, ok := raw["completedAt"]; ok {
		t.Error("completedAt should be omitted until completion")
	}
}
