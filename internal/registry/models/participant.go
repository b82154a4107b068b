package models

import (
	"time"

	id "croptrace/pkg/domain"
)

// Participant is a registered supply-chain actor (farmer, aggregator,
// manufacturer, consumer — the registry does not distinguish roles).
//
// Invariants:
//   - Handle is non-empty and unique within the registry
//   - Presence in the registry means registered; there is no unregistered row
//   - Registration is one-way: participants are never removed, so historic
//     transfers stay attributable even when an actor goes inactive
type Participant struct {
	Handle       id.Handle `json:"handle"`
	RegisteredAt time.Time `json:"registered_at"`
}
