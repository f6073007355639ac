package form

import (
	"strconv"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/catalog"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/domain"
)

// Kind is the host form element type.
type Kind string

const (
	KindHeader       Kind = "header"
	KindText         Kind = "text"
	KindAutocomplete Kind = "autocomplete"
	KindSelect       Kind = "select"
	KindSubmit       Kind = "submit"
	KindHidden       Kind = "hidden"
)

// Filters applied by the host to submitted values.
const (
	FilterAlphanum = "alphanum"
	FilterInt      = "int"
	FilterRaw      = "raw"
	FilterText     = "text"
)

// Choice is one entry of a select or autocomplete element.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Element is a single host form element.
type Element struct {
	Name     string   `json:"name"`
	Kind     Kind     `json:"kind"`
	Label    string   `json:"label,omitempty"`
	Value    string   `json:"value,omitempty"`
	Filter   string   `json:"filter,omitempty"`
	Choices  []Choice `json:"choices,omitempty"`
	Tags     bool     `json:"tags,omitempty"`
	NoSubmit bool     `json:"no_submit,omitempty"`
	Size     int      `json:"size,omitempty"`
}

// Group renders its elements on one line.
type Group struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Elements []Element `json:"elements"`
}

// Definition is everything the extension adds to the settings form.
type Definition struct {
	Header    Element `json:"header"`
	Help      string  `json:"help"`
	Groups    []Group `json:"groups"`
	AddButton Element `json:"add_button"`
	Count     Element `json:"count"`
}

// Builder produces form definitions for a value widget and placeholder list.
type Builder struct {
	Widget  Widget
	Options []catalog.Option
}

// Define renders one group per row of s, preloaded with the row values.
func (b Builder) Define(s State) Definition {
	valueChoices := make([]Choice, 0, len(b.Options))
	for _, opt := range b.Options {
		valueChoices = append(valueChoices, Choice{Value: opt.Key, Label: opt.Label})
	}
	eventChoices := make([]Choice, 0, 3)
	for _, opt := range domain.EventTypeOptions() {
		eventChoices = append(eventChoices, Choice{Value: strconv.Itoa(int(opt.Code)), Label: opt.Label})
	}

	def := Definition{
		Header: Element{Name: FieldHeader, Kind: KindHeader, Label: "Extra parameters"},
		Help:   "The keys and values added in this section are sent to BigBlueButton as 'extra parameters' when the room is created or the user joins the meeting.",
		Groups: make([]Group, 0, len(s.Rows)),
		AddButton: Element{
			Name:     FieldAddGroup,
			Kind:     KindSubmit,
			Label:    "Add a new parameter",
			Filter:   FilterText,
			NoSubmit: true,
		},
		Count: Element{
			Name:   FieldParamCount,
			Kind:   KindHidden,
			Value:  strconv.Itoa(s.Count()),
			Filter: FilterInt,
		},
	}

	for i, row := range s.Rows {
		value := Element{
			Name:    Indexed(FieldValue, i),
			Kind:    KindAutocomplete,
			Label:   "Parameter value",
			Value:   row.Value,
			Filter:  FilterRaw,
			Choices: valueChoices,
			Tags:    true,
		}
		if b.Widget == WidgetSelect {
			value.Kind = KindSelect
			value.Tags = false
		}
		def.Groups = append(def.Groups, Group{
			Name:  Indexed(FieldGroup, i),
			Label: "Parameter",
			Elements: []Element{
				{Name: Indexed(FieldName, i), Kind: KindText, Label: "Parameter name", Value: row.Name, Filter: FilterAlphanum, Size: 6},
				value,
				{Name: Indexed(FieldEventType, i), Kind: KindSelect, Label: "Parameter event type", Value: row.EventType, Filter: FilterInt, Choices: eventChoices},
				{Name: Indexed(FieldDelete, i), Kind: KindSubmit, Label: "Delete", Filter: FilterRaw, NoSubmit: true},
			},
		})
	}
	return def
}
