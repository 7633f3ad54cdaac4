package domain

// Algorithm represents the AEAD algorithm used for field encryption.
//
// Both supported algorithms use a 256-bit key, a 12-byte nonce and a 16-byte authentication
// tag, so the EncryptedValue payload layout is the same whichever one a deployment selects.
type Algorithm string

const (
	// AESGCM represents AES-256-GCM. Preferred on CPUs with AES-NI.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents ChaCha20-Poly1305. Preferred on platforms without AES hardware support.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

const (
	// KeySize is the required length in bytes of every encryption key.
	KeySize = 32

	// NonceSize is the length in bytes of the random nonce prepended to each payload.
	NonceSize = 12

	// TagSize is the length in bytes of the authentication tag appended by the AEAD.
	TagSize = 16

	// MinHMACKeySize is the minimum length in bytes of the blind index key.
	MinHMACKeySize = 32
)

// ParseAlgorithm validates an algorithm name from configuration.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AESGCM:
		return AESGCM, nil
	case ChaCha20:
		return ChaCha20, nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}
