// Package api exposes the extension points of the extra-parameter service
// over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/auth"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/catalog"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/domain"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/form"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/host"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	enabled []string
	widget  form.Widget
	logger  zerolog.Logger
}

// Option configures optional behaviour for the Handler.
type Option func(*Handler)

// WithEnabledNamespaces restricts the placeholders offered to the form.
func WithEnabledNamespaces(namespaces []string) Option {
	return func(h *Handler) {
		h.enabled = append([]string(nil), namespaces...)
	}
}

// WithWidget selects how the value field is rendered.
func WithWidget(widget form.Widget) Option {
	return func(h *Handler) {
		h.widget = widget
	}
}

// WithLogger overrides the handler logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler builds a Handler offering every namespace with an autocomplete widget.
func NewHandler(service *domain.Service, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		enabled: catalog.Namespaces(),
		widget:  form.WidgetAutocomplete,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", healthz)
	mux.HandleFunc("GET /v1/instances/{id}/parameters", h.listParameters)
	mux.HandleFunc("POST /v1/instances/{id}/parameters", h.addInstance)
	mux.HandleFunc("PUT /v1/instances/{id}/parameters", h.updateInstance)
	mux.HandleFunc("DELETE /v1/instances/{id}/parameters", h.deleteInstance)
	mux.HandleFunc("POST /v1/instances/{id}/actions/{action}", h.mutate)
	mux.HandleFunc("GET /v1/instances/{id}/form", h.instanceForm)
	mux.HandleFunc("POST /v1/form", h.rerenderForm)
	mux.HandleFunc("POST /v1/form/validate", h.validateForm)
	mux.HandleFunc("GET /v1/catalog", h.listNamespaces)
	mux.HandleFunc("GET /v1/catalog/{namespace}", h.namespaceFields)
	mux.HandleFunc("GET /v1/options", h.options)
	mux.HandleFunc("GET /v1/join-tables", h.joinTables)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) builder() form.Builder {
	return form.Builder{Widget: h.widget, Options: catalog.OptionsForParameters(h.enabled)}
}

func (h *Handler) listParameters(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeParametersRead, auth.ScopeParametersWrite); !ok {
		return
	}
	instanceID, ok := instanceIDParam(w, r, 1)
	if !ok {
		return
	}

	rows, err := h.service.Parameters(r.Context(), instanceID)
	if err != nil {
		h.serverError(w, err)
		return
	}

	resp := ParametersResponse{InstanceID: instanceID, Parameters: make([]ParameterView, 0, len(rows))}
	for _, row := range rows {
		resp.Parameters = append(resp.Parameters, toParameterView(row))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) addInstance(w http.ResponseWriter, r *http.Request) {
	h.sync(w, r, h.service.AddInstance)
}

func (h *Handler) updateInstance(w http.ResponseWriter, r *http.Request) {
	h.sync(w, r, h.service.UpdateInstance)
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request, run syncFunc) {
	claims, ok := requireScope(w, r, auth.ScopeParametersWrite)
	if !ok {
		return
	}
	instanceID, ok := instanceIDParam(w, r, 1)
	if !ok {
		return
	}

	var sub domain.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	result, err := run(r.Context(), domain.SyncInput{
		InstanceID: instanceID,
		Submission: form.Postprocess(sub),
		Actor:      claims.Subject,
	})
	if err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{
		InstanceID: instanceID,
		Synced:     result.Synced,
		Count:      result.Count,
		Reason:     result.Reason,
	})
}

func (h *Handler) deleteInstance(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeParametersWrite)
	if !ok {
		return
	}
	instanceID, ok := instanceIDParam(w, r, 1)
	if !ok {
		return
	}

	if err := h.service.DeleteInstance(r.Context(), instanceID, claims.Subject); err != nil {
		h.serverError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeRequestsMutate)
	if !ok {
		return
	}
	instanceID, ok := instanceIDParam(w, r, 0)
	if !ok {
		return
	}
	action, err := domain.ParseAction(r.PathValue("action"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	var req MutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	userID := claims.UserID()
	if req.UserID != nil {
		userID = *req.UserID
	}

	result, err := h.service.Mutate(r.Context(), domain.MutateInput{
		Action:     action,
		Data:       req.Data,
		Metadata:   req.Metadata,
		InstanceID: instanceID,
		UserID:     userID,
	})
	if err != nil {
		if errors.Is(err, host.ErrInstanceNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "activity instance not found")
			return
		}
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MutateResponse{
		Data:     result.Data,
		Metadata: result.Metadata,
		Applied:  result.Applied,
		Target:   string(h.service.Target()),
	})
}

func (h *Handler) instanceForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeParametersRead, auth.ScopeParametersWrite); !ok {
		return
	}
	instanceID, ok := instanceIDParam(w, r, 1)
	if !ok {
		return
	}

	rows, err := h.service.Parameters(r.Context(), instanceID)
	if err != nil {
		h.serverError(w, err)
		return
	}
	state := form.Preprocess(rows)
	writeJSON(w, http.StatusOK, FormResponse{
		Definition: h.builder().Define(state),
		Submission: state.Submission(),
	})
}

func (h *Handler) rerenderForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeParametersRead, auth.ScopeParametersWrite); !ok {
		return
	}

	var req FormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	state := form.FromSubmission(req.Submission)
	if req.Action != "" {
		next, err := state.Apply(req.Action)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		state = next
	}
	writeJSON(w, http.StatusOK, FormResponse{
		Definition: h.builder().Define(state),
		Submission: state.Submission(),
	})
}

func (h *Handler) validateForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeParametersRead, auth.ScopeParametersWrite); !ok {
		return
	}

	var sub domain.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	errs := form.Validate(sub)
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: len(errs) == 0, Errors: errs})
}

func (h *Handler) listNamespaces(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeParametersRead, auth.ScopeParametersWrite); !ok {
		return
	}

	namespaces := catalog.Namespaces()
	resp := CatalogResponse{Namespaces: make([]NamespaceView, 0, len(namespaces))}
	for _, ns := range namespaces {
		resp.Namespaces = append(resp.Namespaces, toNamespaceView(ns))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) namespaceFields(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeParametersRead, auth.ScopeParametersWrite); !ok {
		return
	}

	ns := r.PathValue("namespace")
	if !catalog.Known(ns) {
		writeError(w, http.StatusNotFound, "not_found", "unknown namespace")
		return
	}
	writeJSON(w, http.StatusOK, toNamespaceView(ns))
}

func (h *Handler) options(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeParametersRead, auth.ScopeParametersWrite); !ok {
		return
	}
	writeJSON(w, http.StatusOK, OptionsResponse{
		Parameters: catalog.OptionsForParameters(h.enabled),
		EventTypes: domain.EventTypeOptions(),
	})
}

func (h *Handler) joinTables(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeParametersRead, auth.ScopeParametersWrite); !ok {
		return
	}
	writeJSON(w, http.StatusOK, JoinTablesResponse{Tables: h.service.JoinTables()})
}

func (h *Handler) serverError(w http.ResponseWriter, err error) {
	h.logger.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "server_error", err.Error())
}

// requireScope writes 401/403 unless the request carries one of scopes.
func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return claims, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
	return nil, false
}

// instanceIDParam reads the {id} path value. Rows are only stored for
// positive ids; mutation passes minID 0 since an unsaved instance leaves the
// request untouched.
func instanceIDParam(w http.ResponseWriter, r *http.Request, minID int64) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < minID {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid instance id")
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
