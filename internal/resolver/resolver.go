// Package resolver turns parameter values into the strings sent to the
// conferencing server. Values of the form %namespace.field% are looked up in
// the request's projections; anything else is used literally.
package resolver

import (
	"fmt"
	"strings"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/catalog"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/host"
)

const marker = "%"

// RequestContext carries the projections of the request being resolved.
// Nil projections resolve every field of their namespace to "".
type RequestContext struct {
	User     *host.UserProfile
	Course   *host.CourseSummary
	Activity *host.ActivitySummary
}

// Handler returns the value of field for the request, or "" when the field
// is not part of the namespace.
type Handler func(field string, rc RequestContext) string

// Resolver dispatches placeholders to namespace handlers.
type Resolver struct {
	handlers map[string]Handler
}

// New validates that handlers and catalog namespaces match one to one.
func New(handlers map[string]Handler) (*Resolver, error) {
	for ns := range handlers {
		if !catalog.Known(ns) {
			return nil, fmt.Errorf("resolver: handler registered for unknown namespace %q", ns)
		}
	}
	for _, ns := range catalog.Namespaces() {
		if handlers[ns] == nil {
			return nil, fmt.Errorf("resolver: no handler for namespace %q", ns)
		}
	}
	copied := make(map[string]Handler, len(handlers))
	for ns, h := range handlers {
		copied[ns] = h
	}
	return &Resolver{handlers: copied}, nil
}

// Default returns a resolver reading the user, course and activity projections.
func Default() *Resolver {
	r, err := New(DefaultHandlers())
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultHandlers maps each catalog namespace to its projection.
func DefaultHandlers() map[string]Handler {
	return map[string]Handler{
		catalog.NamespaceUser: ProjectionHandler(catalog.NamespaceUser, func(rc RequestContext) any {
			return rc.User
		}),
		catalog.NamespaceCourse: ProjectionHandler(catalog.NamespaceCourse, func(rc RequestContext) any {
			return rc.Course
		}),
		catalog.NamespaceActivity: ProjectionHandler(catalog.NamespaceActivity, func(rc RequestContext) any {
			return rc.Activity
		}),
	}
}

// ProjectionHandler serves the allow-listed fields of one projection.
func ProjectionHandler(namespace string, pick func(RequestContext) any) Handler {
	return func(field string, rc RequestContext) string {
		if !catalog.HasField(namespace, field) {
			return ""
		}
		return catalog.Values(pick(rc))[field]
	}
}

// Resolve returns raw unchanged unless it is a placeholder, in which case the
// namespace handler's value is returned. Unknown namespaces yield "".
func (r *Resolver) Resolve(raw string, rc RequestContext) string {
	namespace, field, ok := ParsePlaceholder(raw)
	if !ok {
		return raw
	}
	handler, found := r.handlers[namespace]
	if !found {
		return ""
	}
	return handler(field, rc)
}

// ParsePlaceholder splits "%namespace.field%" into its parts. ok is false
// for literals.
func ParsePlaceholder(raw string) (namespace, field string, ok bool) {
	if !strings.HasPrefix(raw, marker) {
		return "", "", false
	}
	trimmed := strings.Trim(raw, marker)
	namespace, field, _ = strings.Cut(trimmed, ".")
	return namespace, field, true
}
