package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"croptrace/internal/ledger/models"
	"croptrace/internal/ledger/service/mocks"
	id "croptrace/pkg/domain"
	dErrors "croptrace/pkg/domain-errors"
	"croptrace/pkg/platform/eventlog"
	"croptrace/pkg/platform/sentinel"
	"croptrace/pkg/requestcontext"
)

type LedgerServiceSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockStore    *mocks.MockStore
	mockRegistry *mocks.MockRegistryReader
	service      *Service
	ctx          context.Context
	now          time.Time
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.mockRegistry = mocks.NewMockRegistryReader(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(s.mockStore, s.mockRegistry, WithLogger(logger))
	s.now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *LedgerServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

const (
	farmer = id.Handle("farmer-alba")
	buyer  = id.Handle("coop-riverside")
	other  = id.Handle("broker-east")
)

// =============================================================================
// Mint
// =============================================================================

func (s *LedgerServiceSuite) TestMintSuccess() {
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), farmer).Return(true, nil)
	s.mockStore.EXPECT().
		Mint(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, unit models.Unit, eventFn func(id.UnitID) eventlog.Event) (models.Unit, error) {
			s.Equal(farmer, unit.Owner)
			s.Equal("heirloom tomatoes, lot 42", unit.Metadata)
			s.Equal(s.now, unit.MintedAt)

			unit.ID = 7
			event := eventFn(unit.ID)
			s.Equal(eventlog.KindUnitMinted, event.Kind)
			s.Equal(id.UnitID(7), event.UnitID)
			return unit, nil
		})

	unit, err := s.service.Mint(s.ctx, farmer, "heirloom tomatoes, lot 42")
	s.Require().NoError(err)
	s.Equal(id.UnitID(7), unit.ID)
	s.Equal(farmer, unit.Owner)
}

func (s *LedgerServiceSuite) TestMintUnregisteredCaller() {
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), farmer).Return(false, nil)

	_, err := s.service.Mint(s.ctx, farmer, "metadata")
	s.True(dErrors.HasCode(err, dErrors.CodeNotRegistered))
}

func (s *LedgerServiceSuite) TestMintZeroCaller() {
	_, err := s.service.Mint(s.ctx, "", "metadata")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *LedgerServiceSuite) TestMintEmptyMetadataAllowed() {
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), farmer).Return(true, nil)
	s.mockStore.EXPECT().
		Mint(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, unit models.Unit, _ func(id.UnitID) eventlog.Event) (models.Unit, error) {
			s.Empty(unit.Metadata)
			return unit, nil
		})

	_, err := s.service.Mint(s.ctx, farmer, "")
	s.NoError(err)
}

// =============================================================================
// Transfer
// =============================================================================

// executeAgainst wires the mock store so Execute runs the service's validate
// and mutate closures against the given unit, the way a real store would.
func (s *LedgerServiceSuite) executeAgainst(unit models.Unit) {
	s.mockStore.EXPECT().
		Execute(gomock.Any(), unit.ID, gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.UnitID, validate func(*models.Unit) error, mutate func(*models.Unit), _ eventlog.Event) (models.Unit, error) {
			if err := validate(&unit); err != nil {
				return models.Unit{}, err
			}
			mutate(&unit)
			return unit, nil
		})
}

func (s *LedgerServiceSuite) TestTransferSuccess() {
	unit := models.Unit{ID: 3, Owner: farmer, MintedAt: s.now.Add(-time.Hour)}
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), farmer).Return(true, nil)
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), buyer).Return(true, nil)
	s.executeAgainst(unit)

	got, err := s.service.Transfer(s.ctx, farmer, 3, buyer)
	s.Require().NoError(err)
	s.Equal(buyer, got.Owner)
	s.Equal(s.now, got.UpdatedAt)
}

func (s *LedgerServiceSuite) TestTransferUnregisteredCaller() {
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), farmer).Return(false, nil)

	_, err := s.service.Transfer(s.ctx, farmer, 3, buyer)
	s.True(dErrors.HasCode(err, dErrors.CodeNotRegistered))
}

func (s *LedgerServiceSuite) TestTransferUnitNotFound() {
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), farmer).Return(true, nil)
	s.mockStore.EXPECT().
		Execute(gomock.Any(), id.UnitID(99), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(models.Unit{}, sentinel.ErrNotFound)

	_, err := s.service.Transfer(s.ctx, farmer, 99, buyer)
	s.True(dErrors.HasCode(err, dErrors.CodeUnitNotFound))
}

func (s *LedgerServiceSuite) TestTransferNotOwner() {
	unit := models.Unit{ID: 3, Owner: other}
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), farmer).Return(true, nil)
	s.executeAgainst(unit)

	_, err := s.service.Transfer(s.ctx, farmer, 3, buyer)
	s.True(dErrors.HasCode(err, dErrors.CodeNotOwner))
}

// Ownership is checked before the recipient: a non-owner probing with a bad
// recipient learns nothing about the recipient.
func (s *LedgerServiceSuite) TestTransferNotOwnerBeforeInvalidRecipient() {
	unit := models.Unit{ID: 3, Owner: other}
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), farmer).Return(true, nil)
	s.executeAgainst(unit)

	_, err := s.service.Transfer(s.ctx, farmer, 3, "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotOwner))
}

func (s *LedgerServiceSuite) TestTransferInvalidRecipient() {
	unit := models.Unit{ID: 3, Owner: farmer}
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), farmer).Return(true, nil)
	s.executeAgainst(unit)

	_, err := s.service.Transfer(s.ctx, farmer, 3, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidRecipient))
}

func (s *LedgerServiceSuite) TestTransferRecipientNotRegistered() {
	unit := models.Unit{ID: 3, Owner: farmer}
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), farmer).Return(true, nil)
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), buyer).Return(false, nil)
	s.executeAgainst(unit)

	_, err := s.service.Transfer(s.ctx, farmer, 3, buyer)
	s.True(dErrors.HasCode(err, dErrors.CodeRecipientNotRegistered))
}

func (s *LedgerServiceSuite) TestTransferToSelf() {
	unit := models.Unit{ID: 3, Owner: farmer}
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), farmer).Return(true, nil).Times(2)
	s.executeAgainst(unit)

	got, err := s.service.Transfer(s.ctx, farmer, 3, farmer)
	s.Require().NoError(err)
	s.Equal(farmer, got.Owner)
}

// =============================================================================
// Authenticate
// =============================================================================

func (s *LedgerServiceSuite) TestAuthenticateOwnerMatches() {
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), buyer).Return(true, nil)
	s.mockStore.EXPECT().Find(gomock.Any(), id.UnitID(5)).
		Return(models.Unit{ID: 5, Owner: farmer}, nil)

	result, err := s.service.Authenticate(s.ctx, buyer, 5, farmer)
	s.Require().NoError(err)
	s.True(result.Authentic)
}

func (s *LedgerServiceSuite) TestAuthenticateOwnerMismatch() {
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), buyer).Return(true, nil)
	s.mockStore.EXPECT().Find(gomock.Any(), id.UnitID(5)).
		Return(models.Unit{ID: 5, Owner: farmer}, nil)

	result, err := s.service.Authenticate(s.ctx, buyer, 5, other)
	s.Require().NoError(err)
	s.False(result.Authentic)
}

// A missing unit is an error, not a "not authentic" answer.
func (s *LedgerServiceSuite) TestAuthenticateUnknownUnit() {
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), buyer).Return(true, nil)
	s.mockStore.EXPECT().Find(gomock.Any(), id.UnitID(404)).
		Return(models.Unit{}, sentinel.ErrNotFound)

	_, err := s.service.Authenticate(s.ctx, buyer, 404, farmer)
	s.True(dErrors.HasCode(err, dErrors.CodeUnitNotFound))
}

func (s *LedgerServiceSuite) TestAuthenticateUnregisteredCaller() {
	s.mockRegistry.EXPECT().IsRegistered(gomock.Any(), buyer).Return(false, nil)

	_, err := s.service.Authenticate(s.ctx, buyer, 5, farmer)
	s.True(dErrors.HasCode(err, dErrors.CodeNotRegistered))
}

// =============================================================================
// Reads
// =============================================================================

func (s *LedgerServiceSuite) TestGetDoesNotRequireRegistration() {
	s.mockStore.EXPECT().Find(gomock.Any(), id.UnitID(1)).
		Return(models.Unit{ID: 1, Owner: farmer}, nil)

	unit, err := s.service.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(farmer, unit.Owner)
}

func (s *LedgerServiceSuite) TestGetNotFound() {
	s.mockStore.EXPECT().Find(gomock.Any(), id.UnitID(1)).
		Return(models.Unit{}, sentinel.ErrNotFound)

	_, err := s.service.Get(s.ctx, 1)
	s.True(dErrors.HasCode(err, dErrors.CodeUnitNotFound))
}

func (s *LedgerServiceSuite) TestGetStoreFailure() {
	s.mockStore.EXPECT().Find(gomock.Any(), id.UnitID(1)).
		Return(models.Unit{}, errors.New("connection reset"))

	_, err := s.service.Get(s.ctx, 1)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *LedgerServiceSuite) TestNextID() {
	s.mockStore.EXPECT().NextID(gomock.Any()).Return(id.UnitID(12), nil)

	next, err := s.service.NextID(s.ctx)
	s.Require().NoError(err)
	s.Equal(id.UnitID(12), next)
}

func (s *LedgerServiceSuite) TestListByOwnerDefaultLimit() {
	s.mockStore.EXPECT().ListByOwner(gomock.Any(), farmer, 100).Return(nil, nil)

	_, err := s.service.ListByOwner(s.ctx, farmer, 0)
	s.NoError(err)
}

func (s *LedgerServiceSuite) TestListByOwnerClampsLimit() {
	s.mockStore.EXPECT().ListByOwner(gomock.Any(), farmer, 1000).Return(nil, nil)

	_, err := s.service.ListByOwner(s.ctx, farmer, 5000)
	s.NoError(err)
}
