package domain

import "strings"

// BlindIndexBytes is how much of the HMAC-SHA256 digest a blind index keeps. The resulting
// 64-bit token space is fine for equality lookups but does not guarantee uniqueness at large
// scale; widening it requires re-indexing every stored token.
const BlindIndexBytes = 8

// NormalizeForIndex lowercases and trims a value before it is indexed.
func NormalizeForIndex(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
