package api

import (
	"context"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/catalog"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/domain"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/form"
)

type syncFunc func(context.Context, domain.SyncInput) (domain.SyncResult, error)

// ParameterView is a stored parameter row.
type ParameterView struct {
	ID        int64  `json:"id"`
	EventType int    `json:"eventtype"`
	Name      string `json:"paramname"`
	Value     string `json:"paramvalue"`
}

// ParametersResponse lists the rows of an instance in insertion order.
type ParametersResponse struct {
	InstanceID int64           `json:"instance_id"`
	Parameters []ParameterView `json:"parameters"`
}

// SyncResponse reports the outcome of the lifecycle hook.
type SyncResponse struct {
	InstanceID int64  `json:"instance_id"`
	Synced     bool   `json:"synced"`
	Count      int    `json:"count"`
	Reason     string `json:"reason,omitempty"`
}

// MutateRequest is the outbound request handed over by the host. UserID
// overrides the token subject, e.g. for guest joins.
type MutateRequest struct {
	Data     map[string]string `json:"data"`
	Metadata map[string]string `json:"metadata"`
	UserID   *int64            `json:"user_id,omitempty"`
}

// MutateResponse carries the outbound maps after parameters were applied.
type MutateResponse struct {
	Data     map[string]string `json:"data"`
	Metadata map[string]string `json:"metadata"`
	Applied  int               `json:"applied"`
	Target   string            `json:"target"`
}

// FormRequest is a no-submit button press on the settings form.
type FormRequest struct {
	Submission domain.Submission `json:"submission"`
	Action     string            `json:"action"`
}

// FormResponse is the form definition plus the values it was built from.
type FormResponse struct {
	Definition form.Definition   `json:"definition"`
	Submission domain.Submission `json:"submission"`
}

// ValidateResponse lists the element errors of a submission.
type ValidateResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

// NamespaceView describes a placeholder namespace.
type NamespaceView struct {
	Namespace string   `json:"namespace"`
	Label     string   `json:"label"`
	Fields    []string `json:"fields"`
}

// CatalogResponse lists every namespace.
type CatalogResponse struct {
	Namespaces []NamespaceView `json:"namespaces"`
}

// OptionsResponse feeds the value and event type selectors.
type OptionsResponse struct {
	Parameters []catalog.Option         `json:"parameters"`
	EventTypes []domain.EventTypeOption `json:"event_types"`
}

// JoinTablesResponse names the tables holding per-instance extension data.
type JoinTablesResponse struct {
	Tables []string `json:"tables"`
}

func toParameterView(row domain.ParameterRow) ParameterView {
	return ParameterView{
		ID:        row.ID,
		EventType: int(row.EventType),
		Name:      row.Name,
		Value:     row.Value,
	}
}

func toNamespaceView(ns string) NamespaceView {
	return NamespaceView{
		Namespace: ns,
		Label:     catalog.Label(ns),
		Fields:    catalog.FieldsFor(ns),
	}
}
