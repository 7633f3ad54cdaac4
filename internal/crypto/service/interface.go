// Package service provides the field encryption services: AEAD ciphers, the versioned key
// registry, the field cipher and the blind indexer.
package service

import (
	"context"

	cryptoDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeySource returns the raw (base64, possibly KMS-wrapped) value of a key slot such as
// ENCRYPTION_KEY, ENCRYPTION_KEY_V2 or HMAC_KEY. An empty string means the slot is unset.
type KeySource interface {
	Lookup(ctx context.Context, slot string) (string, error)
}

// Keys resolves key material by version. Implemented by KeyRegistry.
type Keys interface {
	// CurrentVersion returns the version new ciphertext is written with.
	CurrentVersion() cryptoDomain.KeyVersion

	// Cipher returns the AEAD for version v, importing it on first use.
	Cipher(ctx context.Context, v cryptoDomain.KeyVersion) (AEAD, error)

	// HMACKey returns a copy of the blind index key. Callers must Zero it after use.
	HMACKey(ctx context.Context) ([]byte, error)
}
