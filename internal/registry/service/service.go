// Package service implements the identity registry: the single source of
// truth for which participant handles may hold or transfer units.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	registrymetrics "croptrace/internal/registry/metrics"
	"croptrace/internal/registry/models"
	id "croptrace/pkg/domain"
	dErrors "croptrace/pkg/domain-errors"
	"croptrace/pkg/platform/eventlog"
	"croptrace/pkg/platform/sentinel"
	"croptrace/pkg/requestcontext"
)

// Store is the persistence port for the registry. Implementations must make
// Register atomic: either the participant row and the event are both
// committed, or neither is.
type Store interface {
	Register(ctx context.Context, p models.Participant, event eventlog.Event) (eventlog.Event, error)
	IsRegistered(ctx context.Context, handle id.Handle) (bool, error)
	Find(ctx context.Context, handle id.Handle) (models.Participant, error)
	Count(ctx context.Context) (int, error)
}

// Service orchestrates participant registration.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *registrymetrics.Metrics
	tracer  trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger used for registration events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *registrymetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the registry service.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tracer: otel.Tracer("croptrace/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds the caller to the participant set.
//
// Registration is one-way and idempotent in failure: a second call for the
// same handle returns CodeAlreadyRegistered and changes nothing, and the log
// gains exactly one identity_registered event per handle ever.
func (s *Service) Register(ctx context.Context, caller id.Handle) (models.Participant, error) {
	ctx, span := s.tracer.Start(ctx, "registry.Register",
		trace.WithAttributes(attribute.String("participant.handle", caller.String())))
	defer span.End()
	start := time.Now()

	if caller.IsZero() {
		return models.Participant{}, dErrors.New(dErrors.CodeInvalidInput, "caller handle is required")
	}

	now := requestcontext.Now(ctx)
	p := models.Participant{Handle: caller, RegisteredAt: now}
	event := eventlog.IdentityRegistered(caller, now, requestcontext.RequestID(ctx))

	if _, err := s.store.Register(ctx, p, event); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			s.incRejected("already_registered")
			return models.Participant{}, dErrors.New(dErrors.CodeAlreadyRegistered, "participant is already registered")
		}
		return models.Participant{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register participant")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "participant registered",
			"handle", caller,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if s.metrics != nil {
		s.metrics.IncrementRegistered()
		s.metrics.ObserveRegister(start)
	}
	return p, nil
}

// IsRegistered reports whether the handle belongs to the participant set.
// Pure query: no side effects, unregistered is not an error.
func (s *Service) IsRegistered(ctx context.Context, handle id.Handle) (bool, error) {
	registered, err := s.store.IsRegistered(ctx, handle)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registration")
	}
	return registered, nil
}

// GetParticipant returns the participant record for a handle.
func (s *Service) GetParticipant(ctx context.Context, handle id.Handle) (models.Participant, error) {
	p, err := s.store.Find(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Participant{}, dErrors.New(dErrors.CodeNotFound, "participant is not registered")
		}
		return models.Participant{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load participant")
	}
	return p, nil
}

func (s *Service) incRejected(cause string) {
	if s.metrics != nil {
		s.metrics.IncrementRejected(cause)
	}
}
