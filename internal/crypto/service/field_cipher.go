package service

import (
	"context"
	"errors"
	"log/slog"

	cryptoDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/domain"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/metrics"
)

// Decrypt failure reasons reported in logs and metrics.
const (
	ReasonNoKeyConfigured      = "no_key_configured"
	ReasonAuthenticationFailed = "authentication_failed"
	ReasonMalformed            = "malformed"
)

// FieldCipher encrypts and decrypts individual string fields as EncryptedValues.
//
// Encrypt fails loudly on missing key material. Decrypt never fails: values no configured key
// can read come back as the "[encrypted]" placeholder, plaintext passes through unchanged.
type FieldCipher struct {
	keys    Keys
	logger  *slog.Logger
	metrics metrics.BusinessMetrics
}

// NewFieldCipher creates a FieldCipher. businessMetrics may be nil.
func NewFieldCipher(keys Keys, logger *slog.Logger, businessMetrics metrics.BusinessMetrics) *FieldCipher {
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	return &FieldCipher{keys: keys, logger: logger, metrics: businessMetrics}
}

// CurrentVersion returns the version new ciphertext is written with.
func (f *FieldCipher) CurrentVersion() cryptoDomain.KeyVersion {
	return f.keys.CurrentVersion()
}

// Encrypt encrypts *plaintext with the current key version. A nil input returns nil.
func (f *FieldCipher) Encrypt(ctx context.Context, plaintext *string) (*string, error) {
	if plaintext == nil {
		return nil, nil
	}
	out, err := f.EncryptString(ctx, *plaintext)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// EncryptString encrypts plaintext with the current key version under a fresh random nonce.
func (f *FieldCipher) EncryptString(ctx context.Context, plaintext string) (string, error) {
	version := f.keys.CurrentVersion()

	aead, err := f.keys.Cipher(ctx, version)
	if err != nil {
		return "", err
	}

	ciphertext, nonce, err := aead.Encrypt([]byte(plaintext), nil)
	if err != nil {
		return "", err
	}

	ev := cryptoDomain.EncryptedValue{Version: version, Nonce: nonce, Ciphertext: ciphertext}
	return ev.String(), nil
}

// Decrypt decrypts *value. A nil input returns nil.
func (f *FieldCipher) Decrypt(ctx context.Context, value *string) *string {
	if value == nil {
		return nil
	}
	out := f.DecryptString(ctx, *value)
	return &out
}

// DecryptString decrypts value, trying the tagged version first and then every other
// configured version. Plaintext is returned unchanged; unreadable values become the placeholder.
func (f *FieldCipher) DecryptString(ctx context.Context, value string) string {
	plaintext, err := f.decrypt(ctx, value)
	if err != nil {
		return cryptoDomain.Placeholder
	}
	return plaintext
}

// IsEncrypted reports whether value carries the "enc:" prefix.
func (f *FieldCipher) IsEncrypted(value string) bool {
	return cryptoDomain.IsEncrypted(value)
}

// KeyVersion returns the version tagged on value ("v1" for legacy values), or "" for plaintext
// and unrecognized tags.
func (f *FieldCipher) KeyVersion(value string) string {
	v, ok := cryptoDomain.VersionOf(value)
	if !ok {
		return ""
	}
	return v.String()
}

// IsCurrentVersion reports whether value is tagged with the current key version. Legacy
// values are never current, so they get rewritten in versioned form.
func (f *FieldCipher) IsCurrentVersion(value string) bool {
	ev, err := cryptoDomain.ParseEncryptedValue(value)
	if err != nil {
		return false
	}
	return !ev.Legacy && ev.Version == f.keys.CurrentVersion()
}

// ReencryptToCurrent decrypts value with whichever key works and re-encrypts it with the
// current version. Plaintext is returned unchanged. A value no key can read is also returned
// unchanged, together with ErrReencryptUnreadable.
func (f *FieldCipher) ReencryptToCurrent(ctx context.Context, value string) (string, error) {
	if !cryptoDomain.IsEncrypted(value) {
		return value, nil
	}

	plaintext, err := f.decrypt(ctx, value)
	if err != nil {
		return value, cryptoDomain.ErrReencryptUnreadable
	}

	return f.EncryptString(ctx, plaintext)
}

// Plaintext decrypts value like DecryptString but reports unreadable values as an error
// instead of the placeholder. Used where the caller must not act on the placeholder, such as
// recomputing a blind index during rotation.
func (f *FieldCipher) Plaintext(ctx context.Context, value string) (string, error) {
	if !cryptoDomain.IsEncrypted(value) {
		return value, nil
	}
	plaintext, err := f.decrypt(ctx, value)
	if err != nil {
		return "", cryptoDomain.ErrReencryptUnreadable
	}
	return plaintext, nil
}

func (f *FieldCipher) decrypt(ctx context.Context, value string) (string, error) {
	if !cryptoDomain.IsEncrypted(value) {
		return value, nil
	}

	ev, err := cryptoDomain.ParseEncryptedValue(value)
	if err != nil {
		f.recordFailure(ctx, cryptoDomain.KeyVersion(0), ReasonMalformed, err)
		return "", err
	}

	attempted := 0
	candidates := append([]cryptoDomain.KeyVersion{ev.Version}, cryptoDomain.FallbackOrder(ev.Version)...)
	for _, v := range candidates {
		aead, err := f.keys.Cipher(ctx, v)
		if err != nil {
			if !errors.Is(err, cryptoDomain.ErrKeyNotConfigured) {
				f.logger.Warn("skipping unusable key version",
					slog.String("key_version", v.String()),
					slog.Any("error", err),
				)
			}
			continue
		}
		attempted++

		plaintext, err := aead.Decrypt(ev.Ciphertext, ev.Nonce, nil)
		if err != nil {
			continue
		}

		if v != ev.Version {
			f.logger.Debug("decrypted with fallback key version",
				slog.String("tagged_version", ev.Version.String()),
				slog.String("key_version", v.String()),
			)
		}
		return string(plaintext), nil
	}

	reason := ReasonAuthenticationFailed
	failure := cryptoDomain.ErrDecryptionFailed
	if attempted == 0 {
		reason = ReasonNoKeyConfigured
		failure = cryptoDomain.ErrKeyNotConfigured
	}
	f.recordFailure(ctx, ev.Version, reason, failure)
	return "", failure
}

func (f *FieldCipher) recordFailure(ctx context.Context, v cryptoDomain.KeyVersion, reason string, err error) {
	version := ""
	if v.Valid() {
		version = v.String()
	}
	f.logger.Warn("field decryption failed, returning placeholder",
		slog.String("key_version", version),
		slog.String("reason", reason),
		slog.Any("error", err),
	)
	f.metrics.RecordDecryptFailure(ctx, version, reason)
}
