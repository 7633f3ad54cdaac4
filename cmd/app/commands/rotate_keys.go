package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	rotationDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/rotation/domain"
	rotationUseCase "github.com/kvhuynh79-oss/sda-management-sub004/internal/rotation/usecase"
)

// RunRotateKeys re-encrypts every encrypted field not written with CURRENT_KEY_VERSION and
// refreshes the affected blind indexes. An empty tables list processes every registered table.
//
// The run is idempotent: records already at the current version are skipped, so it can be
// repeated after an interruption. Records no configured key can decrypt are counted as failed
// and left untouched; the command then exits with an error so the old key slots are not removed.
func RunRotateKeys(
	ctx context.Context,
	keyRotationUseCase rotationUseCase.KeyRotationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tables []string,
	format string,
) error {
	logger.Info("rotating field encryption keys", slog.Any("tables", tables))

	result, err := keyRotationUseCase.Rotate(ctx, tables...)
	return finishRotation(logger, writer, result, err, format)
}

// RunEncryptExisting encrypts plaintext values of encrypted fields left over from before
// encryption was enabled, and fills in missing blind indexes. Values that are already
// encrypted are not re-encrypted.
func RunEncryptExisting(
	ctx context.Context,
	keyRotationUseCase rotationUseCase.KeyRotationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tables []string,
	format string,
) error {
	logger.Info("encrypting existing plaintext fields", slog.Any("tables", tables))

	result, err := keyRotationUseCase.EncryptExisting(ctx, tables...)
	return finishRotation(logger, writer, result, err, format)
}

// finishRotation prints the (possibly partial) result and turns failures into an error.
func finishRotation(
	logger *slog.Logger,
	writer io.Writer,
	result *rotationDomain.RotationResult,
	runErr error,
	format string,
) error {
	if result != nil {
		if format == "json" {
			if err := writeJSON(writer, result); err != nil {
				return fmt.Errorf("failed to output JSON: %w", err)
			}
		} else {
			outputRotationText(writer, result)
		}
	}

	if runErr != nil {
		return fmt.Errorf("failed to run %s: %w", modeName(result), runErr)
	}

	totals := result.Totals()
	logger.Info("run completed",
		slog.String("mode", string(result.Mode)),
		slog.String("key_version", result.KeyVersion),
		slog.Int("total", totals.Total),
		slog.Int("rotated", totals.Rotated),
		slog.Int("skipped", totals.Skipped),
		slog.Int("failed", totals.Failed),
	)

	if totals.Failed > 0 {
		return fmt.Errorf("%d record(s) could not be decrypted with any configured key", totals.Failed)
	}
	return nil
}

func modeName(result *rotationDomain.RotationResult) string {
	if result == nil {
		return "key rotation"
	}
	return string(result.Mode)
}

// outputRotationText outputs the per-table counters in human-readable text format.
func outputRotationText(writer io.Writer, result *rotationDomain.RotationResult) {
	_, _ = fmt.Fprintf(writer, "Field Encryption: %s\n", result.Mode)
	_, _ = fmt.Fprintf(writer, "==========================\n\n")
	_, _ = fmt.Fprintf(writer, "Current Key Version: %s\n\n", result.KeyVersion)

	_, _ = fmt.Fprintf(writer, "%-24s %8s %8s %8s %8s\n", "Table", "Total", "Updated", "Skipped", "Failed")
	for _, table := range result.Tables {
		_, _ = fmt.Fprintf(writer, "%-24s %8d %8d %8d %8d\n",
			table.Table, table.Total, table.Rotated, table.Skipped, table.Failed)
	}
	totals := result.Totals()
	_, _ = fmt.Fprintf(writer, "%-24s %8d %8d %8d %8d\n\n",
		totals.Table, totals.Total, totals.Rotated, totals.Skipped, totals.Failed)

	if totals.Failed > 0 {
		_, _ = fmt.Fprintf(writer, "WARNING: %d record(s) were left unchanged because no configured key could decrypt them.\n", totals.Failed)
		_, _ = fmt.Fprintf(writer, "\nStatus: INCOMPLETE\n")
		return
	}
	_, _ = fmt.Fprintf(writer, "Status: COMPLETE\n")
}
