package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type answerKind uint8

const (
	kindBool answerKind = iota + 1
	kindText
	kindChoices
)

// Answer holds a single response: a boolean, a string, or a list of strings.
// The zero value is not a valid answer; use the constructors.
type Answer struct {
	kind    answerKind
	flag    bool
	text    string
	choices []string
}

// Yes is the boolean answer true.
func Yes() Answer { return BoolAnswer(true) }

// No is the boolean answer false.
func No() Answer { return BoolAnswer(false) }

// BoolAnswer builds a yes/no answer.
func BoolAnswer(v bool) Answer {
	return Answer{kind: kindBool, flag: v}
}

// TextAnswer builds a free-text or single-select answer.
func TextAnswer(v string) Answer {
	return Answer{kind: kindText, text: v}
}

// ChoicesAnswer builds a multi-select answer.
func ChoicesAnswer(v []string) Answer {
	choices := make([]string, len(v))
	copy(choices, v)
	return Answer{kind: kindChoices, choices: choices}
}

// IsTrue reports whether the answer is exactly boolean true.
func (a Answer) IsTrue() bool { return a.kind == kindBool && a.flag }

// IsFalse reports whether the answer is exactly boolean false.
func (a Answer) IsFalse() bool { return a.kind == kindBool && !a.flag }

// Bool returns the boolean value and whether the answer is boolean.
func (a Answer) Bool() (bool, bool) { return a.flag, a.kind == kindBool }

// Text returns the string value and whether the answer is a string.
func (a Answer) Text() (string, bool) { return a.text, a.kind == kindText }

// Choices returns a copy of the selected options and whether the answer is a list.
func (a Answer) Choices() ([]string, bool) {
	if a.kind != kindChoices {
		return nil, false
	}
	out := make([]string, len(a.choices))
	copy(out, a.choices)
	return out, true
}

// Valid reports whether the answer was built by a constructor.
func (a Answer) Valid() bool { return a.kind != 0 }

// Fits reports whether the answer is the right shape for the answer type.
func (a Answer) Fits(t AnswerType, options []string) bool {
	switch t {
	case AnswerYesNo:
		return a.kind == kindBool
	case AnswerText:
		return a.kind == kindText
	case AnswerSingleSelect:
		return a.kind == kindText && contains(options, a.text)
	case AnswerMultiSelect:
		if a.kind != kindChoices {
			return false
		}
		for _, c := range a.choices {
			if !contains(options, c) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the answer for display.
func (a Answer) String() string {
	switch a.kind {
	case kindBool:
		if a.flag {
			return "Yes"
		}
		return "No"
	case kindText:
		return a.text
	case kindChoices:
		return strings.Join(a.choices, ", ")
	}
	return ""
}

// MarshalJSON encodes the answer as a bare bool, string, or array.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case kindBool:
		return json.Marshal(a.flag)
	case kindText:
		return json.Marshal(a.text)
	case kindChoices:
		return json.Marshal(a.choices)
	}
	return nil, fmt.Errorf("cannot marshal empty answer")
}

// UnmarshalJSON decodes a bare bool, string, or array of strings.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty answer")
	}
	switch data[0] {
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode boolean answer: %w", err)
		}
		*a = BoolAnswer(v)
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode text answer: %w", err)
		}
		*a = TextAnswer(v)
	case '[':
		var v []string
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode choices answer: %w", err)
		}
		*a = ChoicesAnswer(v)
	default:
		return fmt.Errorf("unsupported answer value %s", string(data))
	}
	return nil
}

// UnmarshalYAML decodes answers from answer files given to the score command.
func (a *Answer) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var flag bool
	if err := unmarshal(&flag); err == nil {
		*a = BoolAnswer(flag)
		return nil
	}
	var list []string
	if err := unmarshal(&list); err == nil {
		*a = ChoicesAnswer(list)
		return nil
	}
	var text string
	if err := unmarshal(&text); err != nil {
		return fmt.Errorf("unsupported answer value: %w", err)
	}
	*a = TextAnswer(text)
	return nil
}

// AnswerSet maps question ids (including sub-question ids) to answers.
type AnswerSet map[string]Answer

// Clone returns an independent copy of the set.
func (s AnswerSet) Clone() AnswerSet {
	if s == nil {
		return nil
	}
	out := make(AnswerSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
