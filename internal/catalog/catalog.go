// Package catalog lists the fields placeholders may reference, grouped by
// namespace. Field lists are read from the export tags of the host
// projections so the catalog never drifts from what the resolver can serve.
package catalog

import (
	"reflect"
	"slices"
	"sort"
	"strconv"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/host"
)

// Namespaces understood by the resolver.
const (
	NamespaceUser     = "user"
	NamespaceCourse   = "courseinfo"
	NamespaceActivity = "activityinfo"
)

const exportTag = "export"

var projections = map[string]reflect.Type{
	NamespaceUser:     reflect.TypeOf(host.UserProfile{}),
	NamespaceCourse:   reflect.TypeOf(host.CourseSummary{}),
	NamespaceActivity: reflect.TypeOf(host.ActivitySummary{}),
}

var namespaceLabels = map[string]string{
	NamespaceActivity: "Activity information (ACTIVITY)",
	NamespaceCourse:   "Course info (COURSE)",
	NamespaceUser:     "Basic user info (USER)",
}

// Option is a selectable placeholder, keyed by its raw form.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Namespaces returns every known namespace, sorted.
func Namespaces() []string {
	out := make([]string, 0, len(projections))
	for ns := range projections {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Known reports whether the namespace has a projection.
func Known(namespace string) bool {
	_, ok := projections[namespace]
	return ok
}

// Label returns the human readable name of a namespace.
func Label(namespace string) string {
	return namespaceLabels[namespace]
}

// FieldsFor returns "namespace.field" for each property of the namespace,
// sorted. Unknown namespaces yield an empty list.
func FieldsFor(namespace string) []string {
	typ, ok := projections[namespace]
	if !ok {
		return []string{}
	}
	props := properties(typ)
	out := make([]string, 0, len(props))
	for _, prop := range props {
		out = append(out, namespace+"."+prop)
	}
	sort.Strings(out)
	return out
}

// HasField reports whether field is declared by the namespace projection.
func HasField(namespace, field string) bool {
	typ, ok := projections[namespace]
	if !ok {
		return false
	}
	return slices.Contains(properties(typ), field)
}

// OptionsForParameters maps "%ns.field%" to "ns.field" for every enabled
// namespace, sorted by key. Unknown entries in enabled are ignored.
func OptionsForParameters(enabled []string) []Option {
	options := make([]Option, 0)
	for _, ns := range Namespaces() {
		if !slices.Contains(enabled, ns) {
			continue
		}
		for _, field := range FieldsFor(ns) {
			options = append(options, Option{Key: "%" + field + "%", Label: field})
		}
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Key < options[j].Key })
	return options
}

func properties(typ reflect.Type) []string {
	out := make([]string, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		if name := typ.Field(i).Tag.Get(exportTag); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Values renders every exported property of a projection as a string. A nil
// projection yields an empty map.
func Values(v any) map[string]string {
	out := make(map[string]string)
	val := reflect.ValueOf(v)
	for val.IsValid() && val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return out
		}
		val = val.Elem()
	}
	if !val.IsValid() || val.Kind() != reflect.Struct {
		return out
	}
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		name := typ.Field(i).Tag.Get(exportTag)
		if name == "" {
			continue
		}
		out[name] = render(val.Field(i))
	}
	return out
}

func render(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return ""
		}
		return render(v.Elem())
	case reflect.String:
		return v.String()
	case reflect.Bool:
		if v.Bool() {
			return "1"
		}
		return "0"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	default:
		return ""
	}
}
