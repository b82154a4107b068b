package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"croptrace/internal/registry/models"
	id "croptrace/pkg/domain"
	dErrors "croptrace/pkg/domain-errors"
	"croptrace/pkg/testutil"
)

type fakeService struct {
	register     func(ctx context.Context, caller id.Handle) (models.Participant, error)
	isRegistered func(ctx context.Context, handle id.Handle) (bool, error)
}

func (f *fakeService) Register(ctx context.Context, caller id.Handle) (models.Participant, error) {
	return f.register(ctx, caller)
}

func (f *fakeService) IsRegistered(ctx context.Context, handle id.Handle) (bool, error) {
	return f.isRegistered(ctx, handle)
}

type RegistryHandlerSuite struct {
	suite.Suite
	fake   *fakeService
	router chi.Router
}

func TestRegistryHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistryHandlerSuite))
}

func (s *RegistryHandlerSuite) SetupTest() {
	s.fake = &fakeService{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.fake, logger)

	s.router = chi.NewRouter()
	s.router.Group(func(r chi.Router) {
		h.Register(s.router, r)
	})
}

func (s *RegistryHandlerSuite) TestRegister() {
	now := time.Now().UTC()
	s.fake.register = func(_ context.Context, caller id.Handle) (models.Participant, error) {
		s.Equal(id.Handle("farmer-alba"), caller)
		return models.Participant{Handle: caller, RegisteredAt: now}, nil
	}

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/participants/register", nil)
	req = testutil.WithCaller(req, "farmer-alba")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[struct {
		Handle string `json:"handle"`
	}](s.T(), rr)
	s.Equal("farmer-alba", resp.Handle)
}

func (s *RegistryHandlerSuite) TestRegisterWithoutCaller() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/participants/register", nil)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *RegistryHandlerSuite) TestRegisterAlreadyRegistered() {
	s.fake.register = func(context.Context, id.Handle) (models.Participant, error) {
		return models.Participant{}, dErrors.New(dErrors.CodeAlreadyRegistered, "participant is already registered")
	}

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/participants/register", nil)
	req = testutil.WithCaller(req, "farmer-alba")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "already_registered")
}

func (s *RegistryHandlerSuite) TestStatus() {
	s.fake.isRegistered = func(_ context.Context, handle id.Handle) (bool, error) {
		return handle == "farmer-alba", nil
	}

	req := testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/participants/farmer-alba/status")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[struct {
		Handle       string `json:"handle"`
		IsRegistered bool   `json:"is_registered"`
	}](s.T(), rr)
	s.True(resp.IsRegistered)

	req = testutil.NewRequest(s.T(), http.MethodGet, "/api/v1/participants/someone-else/status")
	rr = testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp = testutil.UnmarshalResponse[struct {
		Handle       string `json:"handle"`
		IsRegistered bool   `json:"is_registered"`
	}](s.T(), rr)
	s.False(resp.IsRegistered)
}
