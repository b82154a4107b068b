// Package eventlog defines the append-only provenance log.
//
// Every committed mutation of the registry or the ledger produces exactly one
// event, and the log preserves the total commit order. The log is the audit
// trail: events are immutable once appended and there is no mutation path
// besides Append.
package eventlog

import (
	"time"

	"github.com/google/uuid"

	id "croptrace/pkg/domain"
)

// Kind discriminates the three event shapes carried by the log.
type Kind string

const (
	// KindIdentityRegistered records a participant joining the registry.
	KindIdentityRegistered Kind = "identity_registered"

	// KindUnitMinted records creation of a unit, owned by the minting caller.
	KindUnitMinted Kind = "unit_minted"

	// KindUnitTransferred records an ownership reassignment.
	KindUnitTransferred Kind = "unit_transferred"
)

// Event is a single immutable log entry. Kind determines which fields are
// meaningful; the rest stay at their zero values.
//
// Seq is assigned by the recorder at append time and establishes the total
// order of committed mutations. ID is a globally unique event identifier used
// for downstream deduplication (the Kafka relay is at-least-once).
type Event struct {
	Seq        uint64    `json:"seq"`
	ID         uuid.UUID `json:"id"`
	Kind       Kind      `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`

	// identity_registered
	Handle id.Handle `json:"handle,omitempty"`

	// unit_minted and unit_transferred
	UnitID id.UnitID `json:"unit_id"`

	// unit_minted
	Metadata string    `json:"metadata,omitempty"`
	Owner    id.Handle `json:"owner,omitempty"`

	// unit_transferred
	From id.Handle `json:"from,omitempty"`
	To   id.Handle `json:"to,omitempty"`

	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string `json:"request_id,omitempty"`
}

// IdentityRegistered builds the event for a successful registration.
func IdentityRegistered(handle id.Handle, at time.Time, requestID string) Event {
	return Event{
		Kind:       KindIdentityRegistered,
		OccurredAt: at,
		Handle:     handle,
		RequestID:  requestID,
	}
}

// UnitMinted builds the event for a successful mint.
func UnitMinted(unitID id.UnitID, metadata string, owner id.Handle, at time.Time, requestID string) Event {
	return Event{
		Kind:       KindUnitMinted,
		OccurredAt: at,
		UnitID:     unitID,
		Metadata:   metadata,
		Owner:      owner,
		RequestID:  requestID,
	}
}

// UnitTransferred builds the event for a successful transfer.
func UnitTransferred(unitID id.UnitID, from, to id.Handle, at time.Time, requestID string) Event {
	return Event{
		Kind:       KindUnitTransferred,
		OccurredAt: at,
		UnitID:     unitID,
		From:       from,
		To:         to,
		RequestID:  requestID,
	}
}
