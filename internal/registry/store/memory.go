package store

import (
	"context"
	"sync"

	"croptrace/internal/registry/models"
	id "croptrace/pkg/domain"
	"croptrace/pkg/platform/eventlog"
	"croptrace/pkg/platform/sentinel"
)

// InMemory keeps the participant set in a mutex-guarded map. The registration
// event is appended to the shared log inside the critical section, so the log
// order matches the commit order of registrations.
type InMemory struct {
	mu           sync.RWMutex
	participants map[id.Handle]models.Participant
	recorder     eventlog.Recorder
}

// NewInMemory creates an empty registry store writing events to recorder.
func NewInMemory(recorder eventlog.Recorder) *InMemory {
	return &InMemory{
		participants: make(map[id.Handle]models.Participant),
		recorder:     recorder,
	}
}

// Register inserts the participant and appends the registration event
// atomically. Returns sentinel.ErrAlreadyExists without touching state or the
// log when the handle is already present.
func (s *InMemory) Register(ctx context.Context, p models.Participant, event eventlog.Event) (eventlog.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[p.Handle]; ok {
		return eventlog.Event{}, sentinel.ErrAlreadyExists
	}
	s.participants[p.Handle] = p
	return s.recorder.Append(ctx, event)
}

// IsRegistered reports membership. Pure query, never fails in memory.
func (s *InMemory) IsRegistered(_ context.Context, handle id.Handle) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.participants[handle]
	return ok, nil
}

// Find returns the participant record for a handle.
func (s *InMemory) Find(_ context.Context, handle id.Handle) (models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.participants[handle]; ok {
		return p, nil
	}
	return models.Participant{}, sentinel.ErrNotFound
}

// Count reports the number of registered participants.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants), nil
}
