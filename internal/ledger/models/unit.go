package models

import (
	"time"

	id "croptrace/pkg/domain"
)

// Unit is a tracked crop unit: the aggregate the custody ledger owns.
//
// Invariants:
//   - ID is assigned once at mint, sequential from 0, never reused
//   - exactly one Owner at all times; only Transfer reassigns it
//   - Metadata is opaque: never parsed, never validated, possibly empty
//   - units are never deleted (no burn), so provenance stays reconstructible
//
// State machine: NonExistent -> Owned(minter) via mint, Owned(x) -> Owned(to)
// via transfer when x is the caller. No transition back to NonExistent.
type Unit struct {
	ID        id.UnitID `json:"id"`
	Metadata  string    `json:"metadata"`
	Owner     id.Handle `json:"owner"`
	MintedAt  time.Time `json:"minted_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnedBy reports whether the handle is the unit's current owner.
func (u *Unit) OwnedBy(h id.Handle) bool {
	return u.Owner == h
}

// ApplyTransfer reassigns ownership. Callers run this inside the store's
// Execute critical section after validation has passed.
func (u *Unit) ApplyTransfer(to id.Handle, now time.Time) {
	u.Owner = to
	u.UpdatedAt = now
}
