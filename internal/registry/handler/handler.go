package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"croptrace/internal/platform/device"
	"croptrace/internal/registry/models"
	id "croptrace/pkg/domain"
	dErrors "croptrace/pkg/domain-errors"
	"croptrace/pkg/platform/httputil"
	"croptrace/pkg/requestcontext"
)

// Service defines the registry operations the handler depends on.
type Service interface {
	Register(ctx context.Context, caller id.Handle) (models.Participant, error)
	IsRegistered(ctx context.Context, handle id.Handle) (bool, error)
}

// Handler wires participant endpoints to the registry service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registry handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts participant endpoints. The status probe is public; the
// register route sits behind the auth middleware that resolves the caller.
func (h *Handler) Register(public, authed chi.Router) {
	authed.Post("/api/v1/participants/register", h.HandleRegister)
	public.Get("/api/v1/participants/{handle}/status", h.HandleStatus)
}

// HandleRegister handles POST /api/v1/participants/register.
// The participant handle comes from the authenticated request context, never
// from the body: callers register themselves.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	p, err := h.service.Register(ctx, caller)
	if err != nil {
		h.logger.WarnContext(ctx, "registration rejected",
			"request_id", requestID,
			"handle", caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "participant registered",
		"request_id", requestID,
		"handle", caller,
		"client_ip", requestcontext.ClientIP(ctx),
		"device", device.DisplayName(requestcontext.UserAgent(ctx)),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, registerResponse{
		Handle:       p.Handle,
		RegisteredAt: p.RegisteredAt,
	})
}

// HandleStatus handles GET /api/v1/participants/{handle}/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	handle, err := id.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	registered, err := h.service.IsRegistered(ctx, handle)
	if err != nil {
		h.logger.ErrorContext(ctx, "registration check failed",
			"request_id", requestcontext.RequestID(ctx),
			"handle", handle,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, statusResponse{
		Handle:       handle,
		IsRegistered: registered,
	})
}

type registerResponse struct {
	Handle       id.Handle `json:"handle"`
	RegisteredAt time.Time `json:"registered_at"`
}

type statusResponse struct {
	Handle       id.Handle `json:"handle"`
	IsRegistered bool      `json:"is_registered"`
}
