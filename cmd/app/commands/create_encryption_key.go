package commands

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/domain"
	cryptoService "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/service"
)

// RunCreateEncryptionKey generates a 32-byte field encryption key for one key version and
// prints the environment variable that holds it (ENCRYPTION_KEY for v1, ENCRYPTION_KEY_V<N>
// otherwise). With kmsKeyURI set, the printed value is KMS ciphertext. Key material is zeroed
// after encoding.
//
// Rolling out a new version: deploy the new slot next to the old ones, switch
// CURRENT_KEY_VERSION, then run rotate-keys. Old slots must stay set until rotation reports no
// failures.
func RunCreateEncryptionKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	version string,
	kmsProvider, kmsKeyURI string,
) error {
	v, err := cryptoDomain.ParseKeyVersion(version)
	if err != nil {
		return fmt.Errorf("invalid key version %q (valid options: v1 to v10): %w", version, err)
	}

	if err := validateKMSParams(kmsProvider, kmsKeyURI); err != nil {
		return err
	}

	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("failed to generate encryption key: %w", err)
	}
	defer cryptoDomain.Zero(key)

	encoded, err := encodeKeySlot(ctx, kmsService, kmsKeyURI, key)
	if err != nil {
		return err
	}

	slot := cryptoService.EncryptionKeySlots(v)[0]

	_, _ = fmt.Fprintf(writer, "# Field Encryption Key %s\n", v)
	_, _ = fmt.Fprintln(writer, "# Copy these environment variables to your .env file or secrets manager")
	writeKMSHeader(writer, kmsProvider, kmsKeyURI)
	_, _ = fmt.Fprintf(writer, "%s=\"%s\"\n", slot, encoded)
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "# Once every instance has the new slot, set CURRENT_KEY_VERSION=\"%s\" and run rotate-keys.\n", v)
	_, _ = fmt.Fprintln(writer, "# Keep the previous ENCRYPTION_KEY* slots until rotation reports zero failures.")

	logger.Info("encryption key generated",
		slog.String("key_version", v.String()),
		slog.String("slot", slot),
		slog.Bool("kms_wrapped", kmsKeyURI != ""),
	)

	return nil
}
