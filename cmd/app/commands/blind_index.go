package commands

import (
	"context"
	"fmt"
	"io"

	cryptoDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/domain"
)

// BlindIndexer computes blind index tokens.
type BlindIndexer interface {
	Index(ctx context.Context, value string) (string, error)
}

// RunBlindIndex prints the blind index token of value, for looking up encrypted records by
// exact match from a database console.
func RunBlindIndex(
	ctx context.Context,
	indexer BlindIndexer,
	writer io.Writer,
	value string,
	format string,
) error {
	token, err := indexer.Index(ctx, value)
	if err != nil {
		return fmt.Errorf("failed to compute blind index: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, map[string]string{
			"normalized": cryptoDomain.NormalizeForIndex(value),
			"index":      token,
		})
	}

	_, _ = fmt.Fprintln(writer, token)
	return nil
}
