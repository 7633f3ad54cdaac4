package domain

import (
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/errors"
)

// Key rotation error definitions.
var (
	// ErrUnknownTable indicates a table that holds no encrypted fields.
	ErrUnknownTable = errors.Wrap(errors.ErrInvalidInput, "unknown encrypted table")
)
