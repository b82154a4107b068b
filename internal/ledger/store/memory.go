package store

import (
	"context"
	"sync"

	"croptrace/internal/ledger/models"
	id "croptrace/pkg/domain"
	"croptrace/pkg/platform/eventlog"
	"croptrace/pkg/platform/sentinel"
)

// InMemory keeps the unit table and the mint counter behind one mutex. Every
// mutation appends its event to the shared log inside the critical section,
// which makes mutations linearizable and the log order equal to commit order.
type InMemory struct {
	mu       sync.RWMutex
	units    map[id.UnitID]models.Unit
	nextID   id.UnitID
	recorder eventlog.Recorder
}

// NewInMemory creates an empty ledger store writing events to recorder.
func NewInMemory(recorder eventlog.Recorder) *InMemory {
	return &InMemory{
		units:    make(map[id.UnitID]models.Unit),
		recorder: recorder,
	}
}

// Mint assigns the next sequential id, stores the unit, and appends the event
// built by eventFn (which needs the assigned id). The counter only advances
// on success, so failed preconditions upstream never burn an id.
func (s *InMemory) Mint(ctx context.Context, unit models.Unit, eventFn func(id.UnitID) eventlog.Event) (models.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unit.ID = s.nextID
	s.units[unit.ID] = unit
	s.nextID++

	if _, err := s.recorder.Append(ctx, eventFn(unit.ID)); err != nil {
		return models.Unit{}, err
	}
	return unit, nil
}

// Execute runs validate then mutate on the unit under the store lock and
// appends the event, all as one atomic step. A validation error leaves the
// unit, the counter, and the log untouched.
//
// Returns sentinel.ErrNotFound when the unit does not exist.
func (s *InMemory) Execute(ctx context.Context, unitID id.UnitID, validate func(*models.Unit) error, mutate func(*models.Unit), event eventlog.Event) (models.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unit, ok := s.units[unitID]
	if !ok {
		return models.Unit{}, sentinel.ErrNotFound
	}
	if err := validate(&unit); err != nil {
		return models.Unit{}, err
	}
	mutate(&unit)
	s.units[unitID] = unit

	if _, err := s.recorder.Append(ctx, event); err != nil {
		return models.Unit{}, err
	}
	return unit, nil
}

// Find returns the unit by id.
func (s *InMemory) Find(_ context.Context, unitID id.UnitID) (models.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if unit, ok := s.units[unitID]; ok {
		return unit, nil
	}
	return models.Unit{}, sentinel.ErrNotFound
}

// NextID reports the id the next mint will receive.
func (s *InMemory) NextID(_ context.Context) (id.UnitID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID, nil
}

// ListByOwner scans units currently owned by the handle, ascending by id, at
// most limit entries.
func (s *InMemory) ListByOwner(_ context.Context, owner id.Handle, limit int) ([]models.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Unit
	for unitID := id.UnitID(0); unitID < s.nextID; unitID++ {
		unit, ok := s.units[unitID]
		if !ok || !unit.OwnedBy(owner) {
			continue
		}
		out = append(out, unit)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
