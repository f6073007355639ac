// Package domain holds the extra-parameter lifecycle and the outbound
// request mutator of the conferencing activity extension.
package domain

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/catalog"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/events"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/host"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/observability"
	"github.com/jfederico/moodle-bbbext-bnurl/internal/resolver"
)

// ParameterRepository captures persistence of parameter rows.
type ParameterRepository interface {
	ListByInstance(ctx context.Context, instanceID int64) ([]ParameterRow, error)
	Replace(ctx context.Context, instanceID int64, rows []ParameterRow) error
	DeleteByInstance(ctx context.Context, instanceID int64) error
	Table() string
}

// ChangePublisher announces parameter changes to other services.
type ChangePublisher interface {
	PublishSynced(ctx context.Context, event events.ParametersSynced) error
	PublishDeleted(ctx context.Context, event events.ParametersDeleted) error
}

type noopPublisher struct{}

func (noopPublisher) PublishSynced(context.Context, events.ParametersSynced) error   { return nil }
func (noopPublisher) PublishDeleted(context.Context, events.ParametersDeleted) error { return nil }

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithPublisher sets the change publisher. Without one changes are not announced.
func WithPublisher(p ChangePublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithTarget selects the outbound map parameters are written into.
func WithTarget(t Target) Option {
	return func(s *Service) {
		s.target = t
	}
}

// WithLogger overrides the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service orchestrates the lifecycle hook and the outbound request mutator.
type Service struct {
	repo      ParameterRepository
	host      host.Accessor
	resolver  *resolver.Resolver
	publisher ChangePublisher
	target    Target
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService constructs a Service writing into the metadata map by default.
func NewService(repo ParameterRepository, accessor host.Accessor, res *resolver.Resolver, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		host:      accessor,
		resolver:  res,
		publisher: noopPublisher{},
		target:    TargetMetadata,
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Target returns the configured outbound map.
func (s *Service) Target() Target {
	return s.target
}

// SyncInput is the lifecycle hook payload for add and update.
type SyncInput struct {
	InstanceID int64
	Submission Submission
	Actor      string
}

// SyncResult reports whether the submission was written.
type SyncResult struct {
	Synced bool
	Count  int
	Reason string
}

// AddInstance runs when an activity instance is created.
func (s *Service) AddInstance(ctx context.Context, input SyncInput) (SyncResult, error) {
	return s.sync(ctx, input)
}

// UpdateInstance runs when an activity instance is updated.
func (s *Service) UpdateInstance(ctx context.Context, input SyncInput) (SyncResult, error) {
	return s.sync(ctx, input)
}

// sync replaces every row of the instance with the submission. A malformed
// submission is logged and skipped so the stored rows stay untouched.
func (s *Service) sync(ctx context.Context, input SyncInput) (SyncResult, error) {
	rows, err := input.Submission.Rows(input.InstanceID)
	if err != nil {
		var subErr *SubmissionError
		if !errors.As(err, &subErr) {
			return SyncResult{}, err
		}
		reason := "invalid_value"
		if errors.Is(err, ErrCountMismatch) {
			reason = "count_mismatch"
		}
		s.logger.Warn().
			Int64("instance_id", input.InstanceID).
			Str("column", string(subErr.Column)).
			Str("reason", reason).
			Int("declared_count", input.Submission.ParamCount).
			Int("submitted_count", len(input.Submission.Column(subErr.Column))).
			Msg("parameter sync skipped")
		observability.RecordSyncSkipped(string(subErr.Column), reason)
		return SyncResult{Synced: false, Reason: reason}, nil
	}

	if err := s.repo.Replace(ctx, input.InstanceID, rows); err != nil {
		return SyncResult{}, fmt.Errorf("replace parameters for instance %d: %w", input.InstanceID, err)
	}
	now := s.now().UTC()
	observability.RecordSynced(now)

	params := make([]events.Parameter, 0, len(rows))
	for _, row := range rows {
		params = append(params, events.Parameter{EventType: int(row.EventType), Name: row.Name, Value: row.Value})
	}
	event := events.ParametersSynced{
		EventID:    uuid.NewString(),
		InstanceID: input.InstanceID,
		Actor:      input.Actor,
		Parameters: params,
		OccurredAt: now,
	}
	if err := s.publisher.PublishSynced(ctx, event); err != nil {
		s.logPublishFailure(events.TypeParametersSynced, input.InstanceID, err)
	}
	return SyncResult{Synced: true, Count: len(rows)}, nil
}

// DeleteInstance removes every row of a deleted instance.
func (s *Service) DeleteInstance(ctx context.Context, instanceID int64, actor string) error {
	if err := s.repo.DeleteByInstance(ctx, instanceID); err != nil {
		return fmt.Errorf("delete parameters for instance %d: %w", instanceID, err)
	}
	observability.RecordDeleted()

	event := events.ParametersDeleted{
		EventID:    uuid.NewString(),
		InstanceID: instanceID,
		Actor:      actor,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.PublishDeleted(ctx, event); err != nil {
		s.logPublishFailure(events.TypeParametersDeleted, instanceID, err)
	}
	return nil
}

func (s *Service) logPublishFailure(eventType string, instanceID int64, err error) {
	s.logger.Error().Err(err).
		Str("event_type", eventType).
		Int64("instance_id", instanceID).
		Msg("change event not published")
	observability.RecordPublishFailure(eventType)
}

// JoinTables lists the tables holding per-instance data for this extension.
func (s *Service) JoinTables() []string {
	return []string{s.repo.Table()}
}

// Parameters returns the stored rows of an instance in insertion order.
func (s *Service) Parameters(ctx context.Context, instanceID int64) ([]ParameterRow, error) {
	return s.repo.ListByInstance(ctx, instanceID)
}

// MutateInput is the outbound request handed over by the host.
type MutateInput struct {
	Action     Action
	Data       map[string]string
	Metadata   map[string]string
	InstanceID int64
	UserID     int64
}

// MutateResult carries the outbound maps after parameters were applied.
type MutateResult struct {
	Data     map[string]string
	Metadata map[string]string
	Applied  int
}

// Mutate writes the resolved parameters matching the action into the
// configured target map. Input maps are copied; later rows overwrite earlier
// rows with the same name.
func (s *Service) Mutate(ctx context.Context, input MutateInput) (MutateResult, error) {
	result := MutateResult{
		Data:     cloneMap(input.Data),
		Metadata: cloneMap(input.Metadata),
	}
	if input.InstanceID == 0 {
		return result, nil
	}

	rc, err := s.RequestContext(ctx, input.InstanceID, input.UserID)
	if err != nil {
		return MutateResult{}, err
	}

	rows, err := s.repo.ListByInstance(ctx, input.InstanceID)
	if err != nil {
		return MutateResult{}, fmt.Errorf("load parameters for instance %d: %w", input.InstanceID, err)
	}

	target := result.Metadata
	if s.target == TargetData {
		target = result.Data
	}
	for _, row := range rows {
		if !row.EventType.Matches(input.Action) {
			continue
		}
		value := s.resolver.Resolve(row.Value, rc)
		if ns, _, ok := resolver.ParsePlaceholder(row.Value); ok {
			if !catalog.Known(ns) {
				ns = "unknown"
			}
			observability.RecordResolution(ns, value != "")
		}
		target[row.Name] = value
		result.Applied++
	}
	observability.RecordMutation(string(input.Action), string(s.target), result.Applied)
	return result, nil
}

// RequestContext loads the projections placeholders resolve against. A
// missing instance is reported as host.ErrInstanceNotFound; an unknown user
// resolves user fields to empty strings.
func (s *Service) RequestContext(ctx context.Context, instanceID, userID int64) (resolver.RequestContext, error) {
	instance, err := s.host.InstanceByID(ctx, instanceID)
	if err != nil {
		return resolver.RequestContext{}, err
	}
	course, err := s.host.CourseSummary(ctx, *instance)
	if err != nil {
		return resolver.RequestContext{}, fmt.Errorf("course summary for instance %d: %w", instanceID, err)
	}
	activity, err := s.host.ActivitySummary(ctx, *instance)
	if err != nil {
		return resolver.RequestContext{}, fmt.Errorf("activity summary for instance %d: %w", instanceID, err)
	}
	var user *host.UserProfile
	if userID > 0 {
		user, err = s.host.UserProfile(ctx, userID)
		if err != nil {
			return resolver.RequestContext{}, fmt.Errorf("profile for user %d: %w", userID, err)
		}
	}
	return resolver.RequestContext{User: user, Course: course, Activity: activity}, nil
}

func cloneMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	maps.Copy(out, in)
	return out
}
