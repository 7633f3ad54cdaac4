package domain

import (
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/errors"
)

// Field encryption error definitions.
//
// Configuration errors (missing or malformed key material) are returned from the encrypt and
// blind index paths and must never be swallowed: they mean a sensitive value is about to be
// written unprotected. Decryption failures are recovered by the caller into the placeholder.
var (
	// ErrUnsupportedAlgorithm indicates the configured AEAD algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates key material did not decode to exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrInvalidKeyVersion indicates a version string outside v1..v10.
	ErrInvalidKeyVersion = errors.Wrap(errors.ErrInvalidInput, "invalid key version")

	// ErrKeyNotConfigured indicates no key material is configured for the requested version.
	ErrKeyNotConfigured = errors.Wrap(errors.ErrInvalidInput, "encryption key not configured")

	// ErrUnsupportedKMSProvider indicates a KMS key URI scheme or KMS_PROVIDER value this
	// service has no driver for, or a KMS_PROVIDER that does not match the key URI.
	ErrUnsupportedKMSProvider = errors.Wrap(errors.ErrInvalidInput, "unsupported kms provider")

	// ErrHMACKeyNotConfigured indicates the blind index key is missing or too short.
	ErrHMACKeyNotConfigured = errors.Wrap(errors.ErrInvalidInput, "hmac key not configured")

	// ErrInvalidKeyEncoding indicates a key slot holds something other than standard base64.
	ErrInvalidKeyEncoding = errors.Wrap(errors.ErrInvalidInput, "invalid key encoding")

	// ErrMalformedValue indicates an "enc:" string whose payload cannot be parsed.
	ErrMalformedValue = errors.Wrap(errors.ErrInvalidInput, "malformed encrypted value")

	// ErrDecryptionFailed indicates authentication failed for every configured key.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrReencryptUnreadable indicates a value could not be decrypted with any configured key,
	// so it was left as is instead of being re-encrypted.
	ErrReencryptUnreadable = errors.Wrap(errors.ErrInvalidInput, "value unreadable with configured keys")
)
