package domain

import (
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/errors"
)

// Audit chain error definitions.
var (
	// ErrImmutable is returned for every attempt to delete audit entries.
	ErrImmutable = errors.Wrap(
		errors.ErrForbidden,
		"audit log entries are immutable and must be retained for regulatory compliance; they cannot be deleted",
	)

	// ErrSequenceConflict indicates another append took the same sequence number first.
	ErrSequenceConflict = errors.Wrap(errors.ErrConflict, "audit chain sequence number already taken")

	// ErrInvalidAction indicates an action outside the declared set.
	ErrInvalidAction = errors.Wrap(errors.ErrInvalidInput, "invalid audit action")

	// ErrInvalidVerifyMode indicates an unknown verification mode.
	ErrInvalidVerifyMode = errors.Wrap(errors.ErrInvalidInput, "invalid verify mode")

	// ErrEntryNotFound indicates no entry matched.
	ErrEntryNotFound = errors.Wrap(errors.ErrNotFound, "audit log entry not found")
)
