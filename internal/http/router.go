// Package httpapi assembles the HTTP surface: route groups, middleware
// ordering, and the operational endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"croptrace/internal/ledger"
	"croptrace/internal/registry"
	"croptrace/pkg/platform/eventlog"
	"croptrace/pkg/platform/httputil"
	adminmw "croptrace/pkg/platform/middleware/admin"
	authmw "croptrace/pkg/platform/middleware/auth"
	"croptrace/pkg/platform/middleware/metadata"
	"croptrace/pkg/platform/middleware/requestid"
	"croptrace/pkg/platform/middleware/requesttime"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router needs. Optional fields may be nil: a nil
// EventReader hides the admin endpoints, nil health checkers are skipped.
type Deps struct {
	Logger   *slog.Logger
	Tokens   authmw.HandleExtractor
	Registry *registry.Handler
	Ledger   *ledger.Handler

	// AdminTokenHash gates the event endpoints; empty disables them.
	AdminTokenHash string
	EventReader    eventlog.Reader

	Health map[string]HealthChecker
}

// NewRouter wires all endpoints with the standard middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", handleHealthz(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Route groups share the mux: handlers mount their public routes on the
	// root and their gated routes inside the auth group.
	r.Group(func(authed chi.Router) {
		authed.Use(authmw.RequireAuth(deps.Tokens, deps.Logger))
		deps.Registry.Register(r, authed)
		deps.Ledger.Register(r, authed)
	})

	if deps.AdminTokenHash != "" && deps.EventReader != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(adminmw.RequireAdminToken(deps.AdminTokenHash, deps.Logger))
			admin.Get("/admin/events", handleListEvents(deps.EventReader))
		})
	}

	return r
}

func handleHealthz(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				deps[name] = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status":       statusWord(status),
			"dependencies": deps,
		})
	}
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}

// handleListEvents serves the auditor view of the log: events after a cursor,
// oldest first.
func handleListEvents(reader eventlog.Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// A negative cursor would wrap when converted; treat it as "from the
		// beginning".
		after := httputil.QueryInt(r, "after_seq", 0)
		if after < 0 {
			after = 0
		}
		limit := httputil.QueryInt(r, "limit", 100)

		events, err := reader.List(r.Context(), uint64(after), limit)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if events == nil {
			events = []eventlog.Event{}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"events": events,
		})
	}
}
