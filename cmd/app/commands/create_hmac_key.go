package commands

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/domain"
	cryptoService "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/service"
)

// hmacKeyInfo is the HKDF info string of derived blind index keys.
const hmacKeyInfo = "blind-index-hmac-key"

// RunCreateHMACKey prints a new HMAC_KEY for blind indexes.
//
// By default the key is random. With deriveFrom (base64 input keying material of at least 32
// bytes) the key is derived with HKDF-SHA256, so the same input always yields the same key.
// The derived key never equals its input: HMAC_KEY must differ from every encryption key.
//
// Replacing HMAC_KEY changes every blind index token; indexes must be recomputed afterwards.
func RunCreateHMACKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	deriveFrom string,
	kmsProvider, kmsKeyURI string,
) error {
	if err := validateKMSParams(kmsProvider, kmsKeyURI); err != nil {
		return err
	}

	key, err := newHMACKey(deriveFrom)
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(key)

	encoded, err := encodeKeySlot(ctx, kmsService, kmsKeyURI, key)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(writer, "# Blind Index HMAC Key")
	_, _ = fmt.Fprintln(writer, "# Copy these environment variables to your .env file or secrets manager")
	writeKMSHeader(writer, kmsProvider, kmsKeyURI)
	_, _ = fmt.Fprintf(writer, "%s=\"%s\"\n", cryptoService.HMACKeySlot, encoded)
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintln(writer, "# Changing HMAC_KEY invalidates existing blind indexes; recompute them with encrypt-existing.")

	logger.Info("hmac key generated",
		slog.Bool("derived", deriveFrom != ""),
		slog.Bool("kms_wrapped", kmsKeyURI != ""),
	)

	return nil
}

// newHMACKey returns a random key, or the HKDF-SHA256 expansion of the base64 deriveFrom.
func newHMACKey(deriveFrom string) ([]byte, error) {
	key := make([]byte, cryptoDomain.MinHMACKeySize)

	if deriveFrom == "" {
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate hmac key: %w", err)
		}
		return key, nil
	}

	secret, err := base64.StdEncoding.DecodeString(deriveFrom)
	if err != nil {
		return nil, fmt.Errorf("--derive-from must be standard base64: %w", err)
	}
	defer cryptoDomain.Zero(secret)

	if len(secret) < cryptoDomain.MinHMACKeySize {
		return nil, fmt.Errorf(
			"--derive-from must decode to at least %d bytes, got %d",
			cryptoDomain.MinHMACKeySize,
			len(secret),
		)
	}

	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hmacKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive hmac key: %w", err)
	}
	return key, nil
}
