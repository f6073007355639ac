package form

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/catalog"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/domain"
)

func threeRows() State {
	return State{Rows: []Row{
		{Name: "a", Value: "1", EventType: "1"},
		{Name: "b", Value: "%user.firstname%", EventType: "2"},
		{Name: "c", Value: "3", EventType: "3"},
	}}
}

func TestDeleteRowShiftsFollowingRows(t *testing.T) {
	s := threeRows()

	got := s.DeleteRow(1)
	want := State{Rows: []Row{
		{Name: "a", Value: "1", EventType: "1"},
		{Name: "c", Value: "3", EventType: "3"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 2, got.Count())
	require.Equal(t, 3, s.Count(), "original state must not change")
}

func TestDeleteRowOutOfRange(t *testing.T) {
	s := threeRows()
	require.Equal(t, s, s.DeleteRow(3))
	require.Equal(t, s, s.DeleteRow(-1))
}

func TestAddRow(t *testing.T) {
	s := threeRows().AddRow()
	require.Equal(t, 4, s.Count())
	require.Equal(t, Row{EventType: "1"}, s.Rows[3])

	empty := State{}.AddRow()
	require.Equal(t, 1, empty.Count())
}

func TestApply(t *testing.T) {
	s := threeRows()

	added, err := s.Apply("add")
	require.NoError(t, err)
	require.Equal(t, 4, added.Count())

	deleted, err := s.Apply("delete:0")
	require.NoError(t, err)
	require.Equal(t, "b", deleted.Rows[0].Name)

	_, err = s.Apply("delete:x")
	require.ErrorIs(t, err, ErrUnknownAction)

	_, err = s.Apply("reset")
	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestPreprocessAndSubmission(t *testing.T) {
	rows := []domain.ParameterRow{
		{ID: 1, InstanceID: 9, EventType: domain.EventTypeCreate, Name: "x", Value: "%courseinfo.fullname%"},
		{ID: 2, InstanceID: 9, EventType: domain.EventTypeBoth, Name: "y", Value: "lit"},
	}

	state := Preprocess(rows)
	sub := state.Submission()
	require.Equal(t, domain.Submission{
		ParamCount: 2,
		EventTypes: []string{"2", "3"},
		Names:      []string{"x", "y"},
		Values:     []string{"%courseinfo.fullname%", "lit"},
	}, sub)

	back, err := sub.Rows(9)
	require.NoError(t, err)
	require.Len(t, back, 2)
	require.Equal(t, Postprocess(sub), sub)
}

func TestFromSubmissionPadsShortColumns(t *testing.T) {
	state := FromSubmission(domain.Submission{
		ParamCount: 2,
		EventTypes: []string{"1"},
		Names:      []string{"a", "b"},
		Values:     []string{"1"},
	})
	require.Equal(t, []Row{
		{Name: "a", Value: "1", EventType: "1"},
		{Name: "b"},
	}, state.Rows)
}

func TestFromSubmissionBoundsDeclaredCount(t *testing.T) {
	state := FromSubmission(domain.Submission{
		ParamCount: 1 << 62,
		EventTypes: []string{"1"},
		Names:      []string{"a", "b"},
	})
	require.Equal(t, []Row{
		{Name: "a", EventType: "1"},
		{Name: "b"},
	}, state.Rows)

	require.Empty(t, FromSubmission(domain.Submission{ParamCount: 1 << 30}).Rows)
	require.Empty(t, FromSubmission(domain.Submission{ParamCount: -3, Names: []string{"a"}}).Rows)
}

func TestValidate(t *testing.T) {
	errs := Validate(domain.Submission{
		ParamCount: 2,
		EventTypes: []string{"1", "9"},
		Names:      []string{"ok", "not ok"},
		Values:     []string{"anything", "<goes>"},
	})
	require.Equal(t, map[string]string{
		"flexurl_eventtype": InvalidValueMessage,
		"flexurl_paramname": InvalidValueMessage,
	}, errs)

	require.Empty(t, Validate(threeRows().Submission()))
}

func TestParseWidget(t *testing.T) {
	w, err := ParseWidget(" Select ")
	require.NoError(t, err)
	require.Equal(t, WidgetSelect, w)

	_, err = ParseWidget("radio")
	require.Error(t, err)
}

func TestDefineAutocomplete(t *testing.T) {
	b := Builder{Widget: WidgetAutocomplete, Options: catalog.OptionsForParameters([]string{catalog.NamespaceActivity})}

	def := b.Define(threeRows())
	require.Equal(t, FieldHeader, def.Header.Name)
	require.Len(t, def.Groups, 3)
	require.Equal(t, "3", def.Count.Value)
	require.Equal(t, KindHidden, def.Count.Kind)
	require.True(t, def.AddButton.NoSubmit)

	group := def.Groups[1]
	require.Equal(t, "flexurl_paramgroup[1]", group.Name)
	require.Len(t, group.Elements, 4)

	name, value, eventType, remove := group.Elements[0], group.Elements[1], group.Elements[2], group.Elements[3]
	require.Equal(t, "flexurl_paramname[1]", name.Name)
	require.Equal(t, FilterAlphanum, name.Filter)
	require.Equal(t, "b", name.Value)

	require.Equal(t, "flexurl_paramvalue[1]", value.Name)
	require.Equal(t, KindAutocomplete, value.Kind)
	require.True(t, value.Tags)
	require.Equal(t, FilterRaw, value.Filter)
	require.Len(t, value.Choices, 4)
	require.Equal(t, Choice{Value: "%activityinfo.iconurl%", Label: "activityinfo.iconurl"}, value.Choices[0])

	require.Equal(t, "flexurl_eventtype[1]", eventType.Name)
	require.Equal(t, FilterInt, eventType.Filter)
	require.Equal(t, "2", eventType.Value)
	require.Equal(t, []Choice{{Value: "1", Label: "Join"}, {Value: "2", Label: "Create"}, {Value: "3", Label: "Both"}}, eventType.Choices)

	require.Equal(t, "flexurl_paramdelete[1]", remove.Name)
	require.True(t, remove.NoSubmit)
}

func TestDefineSelectWidget(t *testing.T) {
	def := Builder{Widget: WidgetSelect}.Define(State{}.AddRow())
	require.Len(t, def.Groups, 1)

	value := def.Groups[0].Elements[1]
	require.Equal(t, KindSelect, value.Kind)
	require.False(t, value.Tags)
	require.Empty(t, value.Choices)
}
