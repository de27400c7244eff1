package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidAnswer is returned when a value cannot be interpreted as an answer.
var ErrInvalidAnswer = errors.New("answer must be an option index or a string")

// Answer holds either a selected option index or a text value.
// On the wire it is a bare JSON number or string, matching how the
// learner page sends it.
type Answer struct {
	Choice *int
	Text   *string
}

// ChoiceAnswer builds an option-index answer.
func ChoiceAnswer(index int) Answer {
	return Answer{Choice: &index}
}

// TextAnswer builds a text answer ("true"/"false" for true/false questions).
func TextAnswer(text string) Answer {
	return Answer{Text: &text}
}

// IsZero reports whether no value is set.
func (a Answer) IsZero() bool {
	return a.Choice == nil && a.Text == nil
}

// Equal compares by exact value: index equality or string equality.
// An index never equals a string.
func (a Answer) Equal(b Answer) bool {
	switch {
	case a.Choice != nil && b.Choice != nil:
		return *a.Choice == *b.Choice
	case a.Text != nil && b.Text != nil:
		return *a.Text == *b.Text
	default:
		return false
	}
}

// String renders the raw value for logs and queue payloads.
func (a Answer) String() string {
	switch {
	case a.Choice != nil:
		return strconv.Itoa(*a.Choice)
	case a.Text != nil:
		return *a.Text
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch {
	case a.Choice != nil:
		return json.Marshal(*a.Choice)
	case a.Text != nil:
		return json.Marshal(*a.Text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Answer) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*a = Answer{}
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := AnswerFromValue(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// AnswerFromValue converts a decoded JSON/YAML scalar into an Answer.
// Booleans become "true"/"false" strings.
func AnswerFromValue(v any) (Answer, error) {
	switch val := v.(type) {
	case nil:
		return Answer{}, nil
	case int:
		return ChoiceAnswer(val), nil
	case int64:
		return ChoiceAnswer(int(val)), nil
	case float64:
		if val != math.Trunc(val) || val < 0 {
			return Answer{}, fmt.Errorf("%w: %v is not an option index", ErrInvalidAnswer, val)
		}
		return ChoiceAnswer(int(val)), nil
	case string:
		return TextAnswer(val), nil
	case bool:
		return TextAnswer(strconv.FormatBool(val)), nil
	default:
		return Answer{}, fmt.Errorf("%w: got %T", ErrInvalidAnswer, v)
	}
}
