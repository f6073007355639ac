package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var (
	// ErrCountMismatch is returned when a column length differs from the declared count.
	ErrCountMismatch = errors.New("submitted column does not match parameter count")
	// ErrInvalidValue is returned when a submitted element fails its type filter.
	ErrInvalidValue = errors.New("submitted column contains invalid value")
	// ErrUnknownAction is returned for outbound actions other than join and create.
	ErrUnknownAction = errors.New("unknown action")
)

// Column identifies one of the parallel arrays of a form submission.
type Column string

const (
	ColumnEventType Column = "eventtype"
	ColumnName      Column = "paramname"
	ColumnValue     Column = "paramvalue"
)

// ParamType binds a column to the filter its elements must survive unchanged.
type ParamType struct {
	Column Column
	Clean  func(string) string
}

// ParamTypes lists the submission columns in storage order.
var ParamTypes = []ParamType{
	{Column: ColumnEventType, Clean: CleanInt},
	{Column: ColumnName, Clean: CleanAlphanum},
	{Column: ColumnValue, Clean: CleanRaw},
}

// CleanAlphanum strips everything but ASCII letters and digits.
func CleanAlphanum(value string) string {
	return strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return -1
	}, value)
}

// CleanInt normalises value to its decimal integer form; non numbers become "0".
func CleanInt(value string) string {
	n, err := strconv.Atoi(value)
	if err != nil {
		return "0"
	}
	return strconv.Itoa(n)
}

// CleanRaw accepts anything.
func CleanRaw(value string) string {
	return value
}

// Submission is the repeated parameter group posted by the settings form.
type Submission struct {
	ParamCount int      `json:"flexurl_paramcount"`
	EventTypes []string `json:"flexurl_eventtype"`
	Names      []string `json:"flexurl_paramname"`
	Values     []string `json:"flexurl_paramvalue"`
}

// SubmissionError pinpoints the column that made a submission unusable.
type SubmissionError struct {
	Column Column
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Column, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Column returns the submitted elements for c.
func (s Submission) Column(c Column) []string {
	switch c {
	case ColumnEventType:
		return s.EventTypes
	case ColumnName:
		return s.Names
	case ColumnValue:
		return s.Values
	}
	return nil
}

// InvalidColumns returns the columns holding at least one element rejected
// by its filter, in ParamTypes order.
func (s Submission) InvalidColumns() []Column {
	var out []Column
	for _, pt := range ParamTypes {
		if !columnClean(pt, s.Column(pt.Column)) {
			out = append(out, pt.Column)
		}
	}
	return out
}

func columnClean(pt ParamType, values []string) bool {
	for _, v := range values {
		if pt.Clean(v) != v {
			return false
		}
		if pt.Column == ColumnEventType && !EventType(mustAtoi(v)).Valid() {
			return false
		}
	}
	return true
}

func mustAtoi(v string) int {
	n, _ := strconv.Atoi(v)
	return n
}

// Check verifies every column has ParamCount elements that pass their filter.
func (s Submission) Check() error {
	for _, pt := range ParamTypes {
		values := s.Column(pt.Column)
		if len(values) != s.ParamCount {
			return &SubmissionError{Column: pt.Column, Err: ErrCountMismatch}
		}
		if !columnClean(pt, values) {
			return &SubmissionError{Column: pt.Column, Err: ErrInvalidValue}
		}
	}
	return nil
}

// Rows converts a checked submission into rows for instanceID.
func (s Submission) Rows(instanceID int64) ([]ParameterRow, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	rows := make([]ParameterRow, 0, s.ParamCount)
	for i := 0; i < s.ParamCount; i++ {
		eventType, err := ParseEventType(s.EventTypes[i])
		if err != nil {
			return nil, &SubmissionError{Column: ColumnEventType, Err: err}
		}
		rows = append(rows, ParameterRow{
			InstanceID: instanceID,
			EventType:  eventType,
			Name:       s.Names[i],
			Value:      s.Values[i],
		})
	}
	return rows, nil
}
