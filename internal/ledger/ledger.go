// Package ledger is the custody ledger module: minting crop units, moving
// them between registered participants, and answering ownership queries.
package ledger

import (
	"log/slog"

	"croptrace/internal/ledger/handler"
	"croptrace/internal/ledger/service"
)

// Service exposes mint, transfer, authenticate, and read operations.
type Service = service.Service

// Handler wires HTTP endpoints to the ledger service.
type Handler = handler.Handler

// NewService constructs the ledger service with required dependencies.
func NewService(store service.Store, registry service.RegistryReader, opts ...service.Option) *Service {
	return service.New(store, registry, opts...)
}

// NewHandler constructs an HTTP handler for crop unit routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
