// Package service implements the custody ledger: minting crop units and
// moving them between registered participants.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,RegistryReader

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	ledgermetrics "croptrace/internal/ledger/metrics"
	"croptrace/internal/ledger/models"
	"croptrace/internal/ledger/store/cache"
	id "croptrace/pkg/domain"
	dErrors "croptrace/pkg/domain-errors"
	"croptrace/pkg/platform/eventlog"
	"croptrace/pkg/platform/sentinel"
	"croptrace/pkg/requestcontext"
)

// Store is the persistence port for the ledger. Execute must run validate and
// mutate atomically against the current unit state and append the event in the
// same commit; a validate error leaves no observable change.
type Store interface {
	Mint(ctx context.Context, unit models.Unit, eventFn func(id.UnitID) eventlog.Event) (models.Unit, error)
	Execute(ctx context.Context, unitID id.UnitID, validate func(*models.Unit) error, mutate func(*models.Unit), event eventlog.Event) (models.Unit, error)
	Find(ctx context.Context, unitID id.UnitID) (models.Unit, error)
	NextID(ctx context.Context) (id.UnitID, error)
	ListByOwner(ctx context.Context, owner id.Handle, limit int) ([]models.Unit, error)
}

// RegistryReader answers registration queries for gating mutations.
type RegistryReader interface {
	IsRegistered(ctx context.Context, handle id.Handle) (bool, error)
}

// Authenticity is the result of an authenticate check: whether the queried
// handle is the unit's current owner, and the unit itself for context.
type Authenticity struct {
	Authentic bool
	Unit      models.Unit
}

// Service orchestrates ledger operations.
type Service struct {
	store    Store
	registry RegistryReader
	cache    *cache.UnitCache
	logger   *slog.Logger
	metrics  *ledgermetrics.Metrics
	tracer   trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger used for custody events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *ledgermetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCache sets the unit read cache. Optional; nil disables caching.
func WithCache(c *cache.UnitCache) Option {
	return func(s *Service) { s.cache = c }
}

// New constructs the ledger service.
func New(store Store, registry RegistryReader, opts ...Option) *Service {
	s := &Service{
		store:    store,
		registry: registry,
		tracer:   otel.Tracer("croptrace/ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mint creates a new unit owned by the caller. The caller must be registered.
// The assigned id is sequential; ids of committed mints are dense and in mint
// order.
func (s *Service) Mint(ctx context.Context, caller id.Handle, metadata string) (models.Unit, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Mint",
		trace.WithAttributes(attribute.String("participant.handle", caller.String())))
	defer span.End()

	if err := s.requireRegistered(ctx, caller, "mint"); err != nil {
		return models.Unit{}, err
	}

	now := requestcontext.Now(ctx)
	requestID := requestcontext.RequestID(ctx)
	unit := models.Unit{
		Metadata:  metadata,
		Owner:     caller,
		MintedAt:  now,
		UpdatedAt: now,
	}

	minted, err := s.store.Mint(ctx, unit, func(unitID id.UnitID) eventlog.Event {
		return eventlog.UnitMinted(unitID, metadata, caller, now, requestID)
	})
	if err != nil {
		return models.Unit{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint unit")
	}
	s.cache.Set(ctx, minted)

	if s.logger != nil {
		s.logger.InfoContext(ctx, "unit minted",
			"unit_id", minted.ID,
			"owner", caller,
			"request_id", requestID,
		)
	}
	if s.metrics != nil {
		s.metrics.IncrementMinted()
	}
	return minted, nil
}

// Transfer reassigns ownership of the unit from the caller to the recipient.
//
// Preconditions are checked in a fixed order and the first failure wins:
// caller registered, unit exists, caller owns it, recipient handle valid,
// recipient registered. The ownership and registration checks run inside the
// store's critical section, so a concurrent transfer cannot slip between
// check and write.
func (s *Service) Transfer(ctx context.Context, caller id.Handle, unitID id.UnitID, to id.Handle) (models.Unit, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Transfer",
		trace.WithAttributes(
			attribute.String("participant.handle", caller.String()),
			attribute.Int64("unit.id", int64(unitID)),
		))
	defer span.End()
	start := time.Now()

	if err := s.requireRegistered(ctx, caller, "transfer"); err != nil {
		return models.Unit{}, err
	}

	now := requestcontext.Now(ctx)
	requestID := requestcontext.RequestID(ctx)

	validate := func(unit *models.Unit) error {
		if !unit.OwnedBy(caller) {
			return dErrors.New(dErrors.CodeNotOwner, "caller does not own this unit")
		}
		if to.IsZero() {
			return dErrors.New(dErrors.CodeInvalidRecipient, "recipient handle is required")
		}
		registered, err := s.registry.IsRegistered(ctx, to)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check recipient registration")
		}
		if !registered {
			return dErrors.New(dErrors.CodeRecipientNotRegistered, "recipient is not a registered participant")
		}
		return nil
	}
	mutate := func(unit *models.Unit) {
		unit.ApplyTransfer(to, now)
	}
	event := eventlog.UnitTransferred(unitID, caller, to, now, requestID)

	unit, err := s.store.Execute(ctx, unitID, validate, mutate, event)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.incRejected("transfer", "unit_not_found")
			return models.Unit{}, dErrors.New(dErrors.CodeUnitNotFound, "unit does not exist")
		}
		var dErr *dErrors.Error
		if errors.As(err, &dErr) {
			s.incRejected("transfer", string(dErr.Code))
			return models.Unit{}, err
		}
		return models.Unit{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer unit")
	}
	s.cache.Invalidate(ctx, unitID)

	if s.logger != nil {
		s.logger.InfoContext(ctx, "unit transferred",
			"unit_id", unitID,
			"from", caller,
			"to", to,
			"request_id", requestID,
		)
	}
	if s.metrics != nil {
		s.metrics.IncrementTransferred()
		s.metrics.ObserveTransfer(start)
	}
	return unit, nil
}

// Authenticate reports whether the queried handle is the current owner of the
// unit. The caller must be registered. A unit that does not exist is an error
// (unit_not_found), never a false answer: "counterfeit" and "unknown" are
// different claims.
func (s *Service) Authenticate(ctx context.Context, caller id.Handle, unitID id.UnitID, owner id.Handle) (Authenticity, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Authenticate",
		trace.WithAttributes(attribute.Int64("unit.id", int64(unitID))))
	defer span.End()

	if err := s.requireRegistered(ctx, caller, "authenticate"); err != nil {
		return Authenticity{}, err
	}

	unit, err := s.findUnit(ctx, unitID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnitNotFound) && s.metrics != nil {
			s.metrics.IncrementAuthCheck("unit_not_found")
		}
		return Authenticity{}, err
	}

	result := Authenticity{Authentic: unit.OwnedBy(owner), Unit: unit}
	if s.metrics != nil {
		if result.Authentic {
			s.metrics.IncrementAuthCheck("authentic")
		} else {
			s.metrics.IncrementAuthCheck("not_owner")
		}
	}
	return result, nil
}

// Get returns the unit by id. Reads are ungated: consumers checking
// provenance are not required to register.
func (s *Service) Get(ctx context.Context, unitID id.UnitID) (models.Unit, error) {
	return s.findUnit(ctx, unitID)
}

// NextID reports the id the next mint will be assigned. Diagnostic read; the
// value is stale the moment a concurrent mint commits.
func (s *Service) NextID(ctx context.Context) (id.UnitID, error) {
	next, err := s.store.NextID(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read next unit id")
	}
	return next, nil
}

// maxOwnerListLimit caps owner listings regardless of the requested limit.
const (
	defaultOwnerListLimit = 100
	maxOwnerListLimit     = 1000
)

// ListByOwner returns units currently owned by the handle, ascending by id.
// A non-positive limit means the default; limits above the cap are clamped.
func (s *Service) ListByOwner(ctx context.Context, owner id.Handle, limit int) ([]models.Unit, error) {
	if limit <= 0 {
		limit = defaultOwnerListLimit
	}
	if limit > maxOwnerListLimit {
		limit = maxOwnerListLimit
	}
	units, err := s.store.ListByOwner(ctx, owner, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list units by owner")
	}
	return units, nil
}

// findUnit reads through the cache. Reads never write the cache: only
// mutation results populate it, so a read that loaded the pre-transfer state
// cannot put that view back after the transfer's invalidation.
func (s *Service) findUnit(ctx context.Context, unitID id.UnitID) (models.Unit, error) {
	if unit, ok := s.cache.Get(ctx, unitID); ok {
		return unit, nil
	}
	unit, err := s.store.Find(ctx, unitID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Unit{}, dErrors.New(dErrors.CodeUnitNotFound, "unit does not exist")
		}
		return models.Unit{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load unit")
	}
	return unit, nil
}

func (s *Service) requireRegistered(ctx context.Context, caller id.Handle, operation string) error {
	if caller.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "caller handle is required")
	}
	registered, err := s.registry.IsRegistered(ctx, caller)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check caller registration")
	}
	if !registered {
		s.incRejected(operation, "not_registered")
		return dErrors.New(dErrors.CodeNotRegistered, "caller is not a registered participant")
	}
	return nil
}

func (s *Service) incRejected(operation, cause string) {
	if s.metrics != nil {
		s.metrics.IncrementRejected(operation, cause)
	}
}
