package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	cryptoDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/domain"
)

// BlindIndexer derives deterministic equality-search tokens for encrypted fields.
//
// Token = hex(first 8 bytes of HMAC-SHA256(HMAC_KEY, lower(trim(value)))). The HMAC key is
// separate from every encryption key.
type BlindIndexer struct {
	keys Keys
}

// NewBlindIndexer creates a BlindIndexer.
func NewBlindIndexer(keys Keys) *BlindIndexer {
	return &BlindIndexer{keys: keys}
}

// CreateBlindIndex returns the token for *value, or nil for a nil input.
func (b *BlindIndexer) CreateBlindIndex(ctx context.Context, value *string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	token, err := b.Index(ctx, *value)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Index returns the 16-character hex token for value.
func (b *BlindIndexer) Index(ctx context.Context, value string) (string, error) {
	key, err := b.keys.HMACKey(ctx)
	if err != nil {
		return "", err
	}
	defer cryptoDomain.Zero(key)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(cryptoDomain.NormalizeForIndex(value)))
	sum := mac.Sum(nil)

	return hex.EncodeToString(sum[:cryptoDomain.BlindIndexBytes]), nil
}
