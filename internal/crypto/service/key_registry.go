package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	cryptoDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/domain"
	apperrors "github.com/kvhuynh79-oss/sda-management-sub004/internal/errors"
)

// hmacCacheKey is the cache key of the blind index key.
type hmacCacheKey struct{}

// missingKey is cached for versions without configured key material so the decrypt
// fallback walk does not hit the key source on every call.
type missingKey struct{}

// KeyRegistry resolves one AEAD handle per key version and caches it process-wide.
//
// Slot values are standard base64. When a KMS keeper is configured, the decoded bytes are
// KMS ciphertext and are unwrapped before use. Plaintext key bytes are zeroed as soon as the
// cipher has been built; they are never persisted or logged.
//
// The cache is a performance aid only. ClearCache forces re-import on next use.
type KeyRegistry struct {
	source      KeySource
	aeadManager AEADManager
	keeper      cryptoDomain.KMSKeeper
	algorithm   cryptoDomain.Algorithm
	current     cryptoDomain.KeyVersion

	cache sync.Map
	group singleflight.Group
}

// NewKeyRegistry creates a KeyRegistry. keeper may be nil when slots hold raw keys.
// Returns ErrInvalidKeyVersion or ErrUnsupportedAlgorithm for bad configuration.
func NewKeyRegistry(
	source KeySource,
	aeadManager AEADManager,
	keeper cryptoDomain.KMSKeeper,
	currentVersion string,
	algorithm string,
) (*KeyRegistry, error) {
	current, err := cryptoDomain.ParseKeyVersion(currentVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: CURRENT_KEY_VERSION=%q", err, currentVersion)
	}

	alg, err := cryptoDomain.ParseAlgorithm(algorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: ENCRYPTION_ALGORITHM=%q", err, algorithm)
	}

	return &KeyRegistry{
		source:      source,
		aeadManager: aeadManager,
		keeper:      keeper,
		algorithm:   alg,
		current:     current,
	}, nil
}

// CurrentVersion returns the version new ciphertext is written with.
func (r *KeyRegistry) CurrentVersion() cryptoDomain.KeyVersion {
	return r.current
}

// Cipher returns the AEAD for v. Concurrent first uses of one version share a single import.
// Returns ErrKeyNotConfigured when no slot for v is set and ErrInvalidKeySize when the key
// does not decode to 32 bytes.
func (r *KeyRegistry) Cipher(ctx context.Context, v cryptoDomain.KeyVersion) (AEAD, error) {
	if !v.Valid() {
		return nil, cryptoDomain.ErrInvalidKeyVersion
	}

	if cached, ok := r.cache.Load(v); ok {
		return cipherFromCache(v, cached)
	}

	result, err, _ := r.group.Do(v.String(), func() (any, error) {
		if cached, ok := r.cache.Load(v); ok {
			return cached, nil
		}

		key, slot, err := r.loadKey(ctx, EncryptionKeySlots(v)...)
		if err != nil {
			return nil, err
		}
		if key == nil {
			r.cache.Store(v, missingKey{})
			return missingKey{}, nil
		}
		defer cryptoDomain.Zero(key)

		if len(key) != cryptoDomain.KeySize {
			return nil, fmt.Errorf(
				"%w: %s must decode to %d bytes, got %d",
				cryptoDomain.ErrInvalidKeySize,
				slot,
				cryptoDomain.KeySize,
				len(key),
			)
		}

		aead, err := r.aeadManager.CreateCipher(key, r.algorithm)
		if err != nil {
			return nil, err
		}
		r.cache.Store(v, aead)
		return aead, nil
	})
	if err != nil {
		return nil, err
	}

	return cipherFromCache(v, result)
}

func cipherFromCache(v cryptoDomain.KeyVersion, cached any) (AEAD, error) {
	if aead, ok := cached.(AEAD); ok {
		return aead, nil
	}
	return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrKeyNotConfigured, v)
}

// HMACKey returns a copy of the blind index key. It must be at least 32 bytes.
func (r *KeyRegistry) HMACKey(ctx context.Context) ([]byte, error) {
	if cached, ok := r.cache.Load(hmacCacheKey{}); ok {
		return cloneKey(cached.([]byte)), nil
	}

	result, err, _ := r.group.Do(HMACKeySlot, func() (any, error) {
		if cached, ok := r.cache.Load(hmacCacheKey{}); ok {
			return cached, nil
		}

		key, _, err := r.loadKey(ctx, HMACKeySlot)
		if err != nil {
			return nil, err
		}
		if key == nil {
			return nil, fmt.Errorf("%w: %s is not set", cryptoDomain.ErrHMACKeyNotConfigured, HMACKeySlot)
		}
		if len(key) < cryptoDomain.MinHMACKeySize {
			cryptoDomain.Zero(key)
			return nil, fmt.Errorf(
				"%w: %s must decode to at least %d bytes",
				cryptoDomain.ErrHMACKeyNotConfigured,
				HMACKeySlot,
				cryptoDomain.MinHMACKeySize,
			)
		}

		r.cache.Store(hmacCacheKey{}, key)
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	return cloneKey(result.([]byte)), nil
}

// ConfiguredVersions returns the versions with usable key material, ascending. Versions
// whose slots hold malformed keys are omitted.
func (r *KeyRegistry) ConfiguredVersions(ctx context.Context) []cryptoDomain.KeyVersion {
	var versions []cryptoDomain.KeyVersion
	for _, v := range cryptoDomain.AllKeyVersions() {
		if _, err := r.Cipher(ctx, v); err == nil {
			versions = append(versions, v)
		}
	}
	return versions
}

// ClearCache drops every cached handle and zeroes the cached blind index key.
func (r *KeyRegistry) ClearCache() {
	r.cache.Range(func(k, v any) bool {
		if key, ok := v.([]byte); ok {
			cryptoDomain.Zero(key)
		}
		r.cache.Delete(k)
		return true
	})
}

// loadKey returns the decoded (and unwrapped) bytes of the first set slot. A nil key with a
// nil error means none of the slots is set.
func (r *KeyRegistry) loadKey(ctx context.Context, slots ...string) ([]byte, string, error) {
	for _, slot := range slots {
		raw, err := r.source.Lookup(ctx, slot)
		if err != nil {
			return nil, slot, apperrors.Wrap(err, "failed to read key slot "+slot)
		}
		if raw == "" {
			continue
		}

		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, slot, fmt.Errorf("%w: %s", cryptoDomain.ErrInvalidKeyEncoding, slot)
		}

		if r.keeper == nil {
			return decoded, slot, nil
		}

		plaintext, err := r.keeper.Decrypt(ctx, decoded)
		cryptoDomain.Zero(decoded)
		if err != nil {
			return nil, slot, fmt.Errorf("failed to unwrap %s with KMS: %w", slot, err)
		}
		return plaintext, slot, nil
	}

	return nil, "", nil
}

func cloneKey(key []byte) []byte {
	out := make([]byte, len(key))
	copy(out, key)
	return out
}
