package domain

import (
	"encoding/base64"
	"strings"
)

const (
	// EncryptedPrefix marks a string as an EncryptedValue.
	EncryptedPrefix = "enc:"

	// Placeholder is returned by decrypt when no configured key can read a value.
	Placeholder = "[encrypted]"
)

// EncryptedValue is the parsed form of "enc:<version>:<base64(nonce || ciphertext || tag)>".
//
// Legacy values written before key versioning ("enc:<base64>") parse with Version v1 and
// Legacy set.
type EncryptedValue struct {
	Version    KeyVersion
	Nonce      []byte
	Ciphertext []byte
	Legacy     bool
}

// IsEncrypted reports whether s carries the "enc:" prefix.
func IsEncrypted(s string) bool {
	return strings.HasPrefix(s, EncryptedPrefix)
}

// VersionOf returns the key version tagged on s. Legacy values report v1. ok is false for
// plaintext or for an unrecognized tag.
func VersionOf(s string) (KeyVersion, bool) {
	rest, found := strings.CutPrefix(s, EncryptedPrefix)
	if !found {
		return 0, false
	}

	tag, _, versioned := strings.Cut(rest, ":")
	if !versioned {
		return MinKeyVersion, true
	}

	v, err := ParseKeyVersion(tag)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseEncryptedValue splits s into version, nonce and sealed ciphertext.
//
// The standard base64 alphabet has no ':', so a colon after the prefix always delimits a
// version tag.
func ParseEncryptedValue(s string) (*EncryptedValue, error) {
	rest, found := strings.CutPrefix(s, EncryptedPrefix)
	if !found {
		return nil, ErrMalformedValue
	}

	ev := &EncryptedValue{Version: MinKeyVersion, Legacy: true}
	if tag, payload, versioned := strings.Cut(rest, ":"); versioned {
		v, err := ParseKeyVersion(tag)
		if err != nil {
			return nil, ErrMalformedValue
		}
		ev.Version = v
		ev.Legacy = false
		rest = payload
	}

	raw, err := base64.StdEncoding.DecodeString(rest)
	if err != nil {
		return nil, ErrMalformedValue
	}
	if len(raw) < NonceSize+TagSize {
		return nil, ErrMalformedValue
	}

	ev.Nonce = raw[:NonceSize]
	ev.Ciphertext = raw[NonceSize:]
	return ev, nil
}

// String renders the versioned wire form. Legacy values are always re-rendered versioned.
func (ev *EncryptedValue) String() string {
	raw := make([]byte, 0, len(ev.Nonce)+len(ev.Ciphertext))
	raw = append(raw, ev.Nonce...)
	raw = append(raw, ev.Ciphertext...)
	return EncryptedPrefix + ev.Version.String() + ":" + base64.StdEncoding.EncodeToString(raw)
}
