package domain

import (
	"strconv"
	"strings"
)

// KeyVersion labels one generation of field encryption key material.
//
// Versions form a closed set v1..v10. The zero value is invalid.
type KeyVersion uint8

const (
	// MinKeyVersion is the first key generation and the version of legacy unversioned values.
	MinKeyVersion KeyVersion = 1
	// MaxKeyVersion bounds the fallback search to nine historical versions plus the current one.
	MaxKeyVersion KeyVersion = 10
)

// ParseKeyVersion parses "v<N>" for N in 1..10.
func ParseKeyVersion(s string) (KeyVersion, error) {
	digits, ok := strings.CutPrefix(s, "v")
	if !ok || digits == "" || digits[0] == '0' {
		return 0, ErrInvalidKeyVersion
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n < int(MinKeyVersion) || n > int(MaxKeyVersion) {
		return 0, ErrInvalidKeyVersion
	}

	return KeyVersion(n), nil
}

// MustParseKeyVersion is like ParseKeyVersion but panics on invalid input. Intended for
// constants and tests.
func MustParseKeyVersion(s string) KeyVersion {
	v, err := ParseKeyVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the "v<N>" form used in EncryptedValue tags.
func (v KeyVersion) String() string {
	return "v" + strconv.Itoa(int(v))
}

// Valid reports whether v is inside v1..v10.
func (v KeyVersion) Valid() bool {
	return v >= MinKeyVersion && v <= MaxKeyVersion
}

// Number returns the integer generation.
func (v KeyVersion) Number() int {
	return int(v)
}

// AllKeyVersions returns v1..v10 in ascending order.
func AllKeyVersions() []KeyVersion {
	versions := make([]KeyVersion, 0, MaxKeyVersion)
	for v := MinKeyVersion; v <= MaxKeyVersion; v++ {
		versions = append(versions, v)
	}
	return versions
}

// FallbackOrder returns the versions to try after tagged failed, newest first, excluding tagged.
func FallbackOrder(tagged KeyVersion) []KeyVersion {
	versions := make([]KeyVersion, 0, MaxKeyVersion-1)
	for v := MaxKeyVersion; v >= MinKeyVersion; v-- {
		if v != tagged {
			versions = append(versions, v)
		}
	}
	return versions
}
