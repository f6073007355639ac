// Package form models the repeatable "extra parameter" group added to the
// activity settings form: its field definitions, the add/delete re-render
// and validation of submitted rows.
package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/domain"
)

// Prefix namespaces every element the extension adds to the host form.
const Prefix = "flexurl_"

// Element names without index.
const (
	FieldHeader     = Prefix + "header"
	FieldGroup      = Prefix + "paramgroup"
	FieldName       = Prefix + "paramname"
	FieldValue      = Prefix + "paramvalue"
	FieldEventType  = Prefix + "eventtype"
	FieldDelete     = Prefix + "paramdelete"
	FieldAddGroup   = Prefix + "addparamgroup"
	FieldParamCount = Prefix + "paramcount"
)

// Actions accepted by State.Apply.
const (
	ActionAdd    = "add"
	ActionDelete = "delete"
)

// ErrUnknownAction is returned by State.Apply for unsupported actions.
var ErrUnknownAction = errors.New("unknown form action")

// InvalidValueMessage is reported next to columns failing validation.
const InvalidValueMessage = "Invalid value"

// Widget selects how the value field is rendered.
type Widget string

const (
	WidgetAutocomplete Widget = "autocomplete"
	WidgetSelect       Widget = "select"
)

// ParseWidget validates a configured widget name.
func ParseWidget(raw string) (Widget, error) {
	switch w := Widget(strings.ToLower(strings.TrimSpace(raw))); w {
	case WidgetAutocomplete, WidgetSelect:
		return w, nil
	}
	return "", fmt.Errorf("unknown value widget %q", raw)
}

// Row is one parameter group as submitted, before type conversion.
type Row struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	EventType string `json:"eventtype"`
}

// State is the ordered list of parameter groups shown on the form.
type State struct {
	Rows []Row `json:"rows"`
}

// Preprocess loads the stored rows of an instance as form defaults.
func Preprocess(rows []domain.ParameterRow) State {
	out := State{Rows: make([]Row, 0, len(rows))}
	for _, row := range rows {
		out.Rows = append(out.Rows, Row{
			Name:      row.Name,
			Value:     row.Value,
			EventType: strconv.Itoa(int(row.EventType)),
		})
	}
	return out
}

// FromSubmission rebuilds the state of a submitted form. Columns shorter
// than the declared count are padded with empty values. The count never
// exceeds the longest submitted column.
func FromSubmission(sub domain.Submission) State {
	count := min(sub.ParamCount, max(len(sub.Names), len(sub.Values), len(sub.EventTypes)))
	if count < 0 {
		count = 0
	}
	out := State{Rows: make([]Row, count)}
	for i := range out.Rows {
		out.Rows[i] = Row{
			Name:      at(sub.Names, i),
			Value:     at(sub.Values, i),
			EventType: at(sub.EventTypes, i),
		}
	}
	return out
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

// Count is the number of parameter groups.
func (s State) Count() int {
	return len(s.Rows)
}

// AddRow appends an empty group preselecting the first event type.
func (s State) AddRow() State {
	rows := make([]Row, len(s.Rows), len(s.Rows)+1)
	copy(rows, s.Rows)
	return State{Rows: append(rows, Row{EventType: strconv.Itoa(int(domain.EventTypeJoin))})}
}

// DeleteRow removes group i, shifting the following groups up by one.
// Out of range indexes leave the state unchanged.
func (s State) DeleteRow(i int) State {
	if i < 0 || i >= len(s.Rows) {
		return s
	}
	rows := make([]Row, 0, len(s.Rows)-1)
	rows = append(rows, s.Rows[:i]...)
	rows = append(rows, s.Rows[i+1:]...)
	return State{Rows: rows}
}

// Apply runs a no-submit button press: "add" or "delete:<index>".
func (s State) Apply(action string) (State, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(action), ":")
	switch name {
	case ActionAdd:
		return s.AddRow(), nil
	case ActionDelete:
		index, err := strconv.Atoi(arg)
		if err != nil {
			return s, fmt.Errorf("%w: %q", ErrUnknownAction, action)
		}
		return s.DeleteRow(index), nil
	}
	return s, fmt.Errorf("%w: %q", ErrUnknownAction, action)
}

// Submission converts the state into the lifecycle hook payload.
func (s State) Submission() domain.Submission {
	sub := domain.Submission{
		ParamCount: len(s.Rows),
		EventTypes: make([]string, 0, len(s.Rows)),
		Names:      make([]string, 0, len(s.Rows)),
		Values:     make([]string, 0, len(s.Rows)),
	}
	for _, row := range s.Rows {
		sub.EventTypes = append(sub.EventTypes, row.EventType)
		sub.Names = append(sub.Names, row.Name)
		sub.Values = append(sub.Values, row.Value)
	}
	return sub
}

// Validate returns an error message per submitted column holding a value
// rejected by its filter, keyed by element name.
func Validate(sub domain.Submission) map[string]string {
	errs := make(map[string]string)
	for _, column := range sub.InvalidColumns() {
		errs[Prefix+string(column)] = InvalidValueMessage
	}
	return errs
}

// Postprocess lets the extension adjust submitted data before it is saved.
// Submitted rows are stored as they are.
func Postprocess(sub domain.Submission) domain.Submission {
	return sub
}

// Indexed returns the element name of a group member, e.g. flexurl_paramname[2].
func Indexed(field string, i int) string {
	return field + "[" + strconv.Itoa(i) + "]"
}
