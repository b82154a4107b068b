package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"croptrace/internal/ledger/models"
	"croptrace/internal/ledger/service"
	id "croptrace/pkg/domain"
	dErrors "croptrace/pkg/domain-errors"
	"croptrace/pkg/platform/httputil"
	"croptrace/pkg/requestcontext"
)

// Service defines the ledger operations the handler depends on.
type Service interface {
	Mint(ctx context.Context, caller id.Handle, metadata string) (models.Unit, error)
	Transfer(ctx context.Context, caller id.Handle, unitID id.UnitID, to id.Handle) (models.Unit, error)
	Authenticate(ctx context.Context, caller id.Handle, unitID id.UnitID, owner id.Handle) (service.Authenticity, error)
	Get(ctx context.Context, unitID id.UnitID) (models.Unit, error)
	NextID(ctx context.Context) (id.UnitID, error)
	ListByOwner(ctx context.Context, owner id.Handle, limit int) ([]models.Unit, error)
}

// Handler wires crop unit endpoints to the ledger service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a ledger handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts crop unit endpoints. Reads are public; mutations and
// authenticate sit behind the auth middleware that resolves the caller.
func (h *Handler) Register(public, authed chi.Router) {
	authed.Post("/api/v1/crops", h.HandleMint)
	authed.Post("/api/v1/crops/{id}/transfer", h.HandleTransfer)
	authed.Post("/api/v1/crops/{id}/authenticate", h.HandleAuthenticate)

	public.Get("/api/v1/crops/{id}", h.HandleGet)
	public.Get("/api/v1/crops/next-id", h.HandleNextID)
	public.Get("/api/v1/crops/owner/{handle}", h.HandleListByOwner)
}

// HandleMint handles POST /api/v1/crops.
func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.Decode[mintRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	unit, err := h.service.Mint(ctx, caller, req.Metadata)
	if err != nil {
		h.logger.WarnContext(ctx, "mint rejected",
			"request_id", requestcontext.RequestID(ctx),
			"handle", caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "unit minted",
		"request_id", requestcontext.RequestID(ctx),
		"unit_id", unit.ID,
		"owner", caller,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, unitResponse{
		ID:       unit.ID,
		Metadata: unit.Metadata,
		Owner:    unit.Owner,
		MintedAt: unit.MintedAt,
	})
}

// HandleTransfer handles POST /api/v1/crops/{id}/transfer.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	unitID, err := id.ParseUnitID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[transferRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	// The recipient handle is validated inside the transfer, after the
	// ownership check, to keep the precondition order stable.
	to := id.Handle(req.To)

	unit, err := h.service.Transfer(ctx, caller, unitID, to)
	if err != nil {
		h.logger.WarnContext(ctx, "transfer rejected",
			"request_id", requestcontext.RequestID(ctx),
			"unit_id", unitID,
			"from", caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "unit transferred",
		"request_id", requestcontext.RequestID(ctx),
		"unit_id", unitID,
		"from", caller,
		"to", to,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, transferResponse{
		ID:    unit.ID,
		From:  caller,
		Owner: unit.Owner,
	})
}

// HandleAuthenticate handles POST /api/v1/crops/{id}/authenticate.
func (h *Handler) HandleAuthenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	unitID, err := id.ParseUnitID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[authenticateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	owner, err := id.ParseHandle(req.Owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Authenticate(ctx, caller, unitID, owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, authenticateResponse{
		ID:          unitID,
		Owner:       owner,
		IsAuthentic: result.Authentic,
	})
}

// HandleGet handles GET /api/v1/crops/{id}. Ungated: anyone may inspect a
// unit's current state.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	unitID, err := id.ParseUnitID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	unit, err := h.service.Get(ctx, unitID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, unitResponse{
		ID:        unit.ID,
		Metadata:  unit.Metadata,
		Owner:     unit.Owner,
		MintedAt:  unit.MintedAt,
		UpdatedAt: unit.UpdatedAt,
	})
}

// HandleNextID handles GET /api/v1/crops/next-id.
func (h *Handler) HandleNextID(w http.ResponseWriter, r *http.Request) {
	next, err := h.service.NextID(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nextIDResponse{NextID: next})
}

// HandleListByOwner handles GET /api/v1/crops/owner/{handle}?limit=N.
func (h *Handler) HandleListByOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, err := id.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit := httputil.QueryInt(r, "limit", 0)

	units, err := h.service.ListByOwner(ctx, owner, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := ownerListResponse{Owner: owner, Units: make([]unitResponse, 0, len(units))}
	for _, unit := range units {
		resp.Units = append(resp.Units, unitResponse{
			ID:        unit.ID,
			Metadata:  unit.Metadata,
			Owner:     unit.Owner,
			MintedAt:  unit.MintedAt,
			UpdatedAt: unit.UpdatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type mintRequest struct {
	Metadata string `json:"metadata"`
}

type transferRequest struct {
	To string `json:"to"`
}

type authenticateRequest struct {
	Owner string `json:"owner"`
}

type unitResponse struct {
	ID        id.UnitID `json:"id"`
	Metadata  string    `json:"metadata"`
	Owner     id.Handle `json:"owner"`
	MintedAt  time.Time `json:"minted_at"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

type transferResponse struct {
	ID    id.UnitID `json:"id"`
	From  id.Handle `json:"from"`
	Owner id.Handle `json:"owner"`
}

type authenticateResponse struct {
	ID          id.UnitID `json:"id"`
	Owner       id.Handle `json:"owner"`
	IsAuthentic bool      `json:"is_authentic"`
}

type nextIDResponse struct {
	NextID id.UnitID `json:"next_id"`
}

type ownerListResponse struct {
	Owner id.Handle      `json:"owner"`
	Units []unitResponse `json:"units"`
}
