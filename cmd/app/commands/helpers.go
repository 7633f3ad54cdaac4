// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/kvhuynh79-oss/sda-management-sub004/internal/app"
	cryptoService "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/service"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(writer io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}

// validateKMSParams requires kmsProvider and kmsKeyURI to be set together.
func validateKMSParams(kmsProvider, kmsKeyURI string) error {
	if (kmsProvider == "") != (kmsKeyURI == "") {
		return fmt.Errorf(
			"--kms-provider and --kms-key-uri must be used together\n\nFor local development, use:\n  --kms-provider=localsecrets --kms-key-uri=\"base64key://<32-byte-base64-key>\"\n\nFor production, use cloud KMS providers:\n  --kms-provider=gcpkms --kms-key-uri=\"gcpkms://projects/.../cryptoKeys/...\"\n  --kms-provider=awskms --kms-key-uri=\"awskms:///alias/...\"\n  --kms-provider=azurekeyvault --kms-key-uri=\"azurekeyvault://...\"",
		)
	}
	return nil
}

// encodeKeySlot returns the base64 slot value of key. When kmsKeyURI is set the key is
// encrypted with the KMS keeper first, so the slot holds KMS ciphertext.
func encodeKeySlot(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	kmsKeyURI string,
	key []byte,
) (string, error) {
	if kmsKeyURI == "" {
		return base64.StdEncoding.EncodeToString(key), nil
	}

	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return "", fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() { _ = keeper.Close() }()

	ciphertext, err := keeper.Encrypt(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt key with KMS: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// writeKMSHeader prints the KMS settings the generated slot depends on.
func writeKMSHeader(writer io.Writer, kmsProvider, kmsKeyURI string) {
	if kmsKeyURI == "" {
		_, _ = fmt.Fprintln(writer, "# Plain mode: the key is stored base64-encoded, without KMS wrapping")
		_, _ = fmt.Fprintln(writer)
		return
	}

	_, _ = fmt.Fprintln(writer, "# KMS Mode: the key is encrypted with KMS before output")
	_, _ = fmt.Fprintf(writer, "KMS_PROVIDER=\"%s\"\n", kmsProvider)
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	_, _ = fmt.Fprintln(writer)
}
