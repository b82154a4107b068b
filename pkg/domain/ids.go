// Package domain holds the identifier types shared by every module.
//
// Handles and unit ids are parsed at trust boundaries (handlers, consumers)
// so the rest of the code can assume they are well formed. Conventionally
// imported as id.
package domain

import (
	"strconv"
	"strings"
	"unicode"

	dErrors "croptrace/pkg/domain-errors"
)

// Handle is an opaque participant identifier. The surrounding system decides
// what it encodes (a key-derived address, a UUID, an account name); the
// custody core only compares handles for equality.
//
// Invariant: non-empty, at most MaxHandleLength bytes, printable, no spaces.
type Handle string

// MaxHandleLength bounds handle size so the value stays index-friendly.
const MaxHandleLength = 128

// ParseHandle constructs a Handle from external input.
//
// Errors: CodeInvalidInput when the value is empty, too long, or contains
// whitespace or non-printable characters.
func ParseHandle(s string) (Handle, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "handle cannot be empty")
	}
	if len(s) > MaxHandleLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "handle is too long")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "handle contains invalid characters")
		}
	}
	return Handle(s), nil
}

// IsZero reports whether the handle is the null identity.
func (h Handle) IsZero() bool { return h == "" }

func (h Handle) String() string { return string(h) }

// UnitID identifies a tracked unit. Ids are assigned sequentially starting at
// zero and never reused.
type UnitID uint64

// ParseUnitID constructs a UnitID from external input such as a URL segment.
//
// Errors: CodeInvalidInput when the value is not a base-10 unsigned integer.
func ParseUnitID(s string) (UnitID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "unit id cannot be empty")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "unit id must be an unsigned integer")
	}
	return UnitID(n), nil
}

func (u UnitID) String() string { return strconv.FormatUint(uint64(u), 10) }
