package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func randomKey(t *testing.T, size int) []byte {
	t.Helper()
	key := make([]byte, size)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func randomKeyB64(t *testing.T) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(randomKey(t, 32))
}

func newTestRegistry(t *testing.T, slots StaticKeySource, current string) *KeyRegistry {
	t.Helper()
	registry, err := NewKeyRegistry(slots, NewAEADManager(), nil, current, "aes-gcm")
	require.NoError(t, err)
	return registry
}

func newTestFieldCipher(t *testing.T, slots StaticKeySource, current string) *FieldCipher {
	t.Helper()
	return NewFieldCipher(newTestRegistry(t, slots, current), newTestLogger(), nil)
}

// countingKeySource records how often each slot is read.
type countingKeySource struct {
	mu     sync.Mutex
	slots  StaticKeySource
	counts map[string]int
}

func newCountingKeySource(slots StaticKeySource) *countingKeySource {
	return &countingKeySource{slots: slots, counts: make(map[string]int)}
}

func (s *countingKeySource) Lookup(ctx context.Context, slot string) (string, error) {
	s.mu.Lock()
	s.counts[slot]++
	s.mu.Unlock()
	return s.slots.Lookup(ctx, slot)
}

func (s *countingKeySource) count(slot string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[slot]
}
