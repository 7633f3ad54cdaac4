package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/allisson/go-env"

	cryptoDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/domain"
)

const (
	// EncryptionKeySlot holds v1 key material.
	EncryptionKeySlot = "ENCRYPTION_KEY"
	// HMACKeySlot holds the blind index key.
	HMACKeySlot = "HMAC_KEY"
)

// EncryptionKeySlots returns the slots consulted for v, in order. v1 reads ENCRYPTION_KEY and
// falls back to ENCRYPTION_KEY_V1; later versions read ENCRYPTION_KEY_V<N>.
func EncryptionKeySlots(v cryptoDomain.KeyVersion) []string {
	versioned := EncryptionKeySlot + "_V" + strconv.Itoa(v.Number())
	if v == cryptoDomain.MinKeyVersion {
		return []string{EncryptionKeySlot, versioned}
	}
	return []string{versioned}
}

// EnvKeySource reads key slots from environment variables. A .env file loaded by config.Load
// is visible here as well.
type EnvKeySource struct{}

// NewEnvKeySource creates an EnvKeySource.
func NewEnvKeySource() *EnvKeySource {
	return &EnvKeySource{}
}

// Lookup returns the trimmed slot value, or "" when the slot is unset.
func (s *EnvKeySource) Lookup(_ context.Context, slot string) (string, error) {
	return strings.TrimSpace(env.GetString(slot, "")), nil
}

// StaticKeySource serves key slots from a fixed map. Used by CLI commands that receive keys
// as flags and by tests.
type StaticKeySource map[string]string

// Lookup returns the slot value, or "" when absent.
func (s StaticKeySource) Lookup(_ context.Context, slot string) (string, error) {
	return strings.TrimSpace(s[slot]), nil
}
