//go:build integration

package store_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"croptrace/internal/registry/models"
	"croptrace/internal/registry/store"
	id "croptrace/pkg/domain"
	"croptrace/pkg/platform/eventlog"
	eventpg "croptrace/pkg/platform/eventlog/store/postgres"
	"croptrace/pkg/platform/sentinel"
	"croptrace/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	events   *eventpg.Store
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	schema := filepath.Join("..", "..", "..", "db", "schema.sql")
	s.postgres = containers.NewPostgresContainer(s.T(), schema)
	s.events = eventpg.New(s.postgres.Pool)
	s.store = store.NewPostgres(s.postgres.Pool, s.events)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresStoreSuite) register(handle id.Handle) {
	now := time.Now().UTC()
	_, err := s.store.Register(context.Background(),
		models.Participant{Handle: handle, RegisteredAt: now},
		eventlog.IdentityRegistered(handle, now, ""),
	)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestRegisterWritesRowAndEvent() {
	s.register("farmer-alba")

	registered, err := s.store.IsRegistered(context.Background(), "farmer-alba")
	s.Require().NoError(err)
	s.True(registered)

	events, err := s.events.List(context.Background(), 0, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(eventlog.KindIdentityRegistered, events[0].Kind)
	s.Equal(id.Handle("farmer-alba"), events[0].Handle)
}

func (s *PostgresStoreSuite) TestRegisterDuplicate() {
	s.register("farmer-alba")

	now := time.Now().UTC()
	_, err := s.store.Register(context.Background(),
		models.Participant{Handle: "farmer-alba", RegisteredAt: now},
		eventlog.IdentityRegistered("farmer-alba", now, ""),
	)
	s.ErrorIs(err, sentinel.ErrAlreadyExists)

	// The rolled-back attempt must leave no event behind.
	events, err := s.events.List(context.Background(), 0, 10)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *PostgresStoreSuite) TestFindUnknown() {
	_, err := s.store.Find(context.Background(), "unknown")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// Concurrent registrations of one handle: the unique constraint lets exactly
// one commit, and exactly one event exists afterwards.
func (s *PostgresStoreSuite) TestConcurrentDuplicateRegistrations() {
	const goroutines = 20
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			now := time.Now().UTC()
			_, err := s.store.Register(context.Background(),
				models.Participant{Handle: "farmer-alba", RegisteredAt: now},
				eventlog.IdentityRegistered("farmer-alba", now, ""),
			)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won int
	for err := range errs {
		if err == nil {
			won++
		} else {
			s.ErrorIs(err, sentinel.ErrAlreadyExists)
		}
	}
	s.Equal(1, won)

	count, err := s.store.Count(context.Background())
	s.Require().NoError(err)
	s.Equal(1, count)

	events, err := s.events.List(context.Background(), 0, 100)
	s.Require().NoError(err)
	s.Len(events, 1)
}
