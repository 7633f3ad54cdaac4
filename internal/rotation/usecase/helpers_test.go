package usecase

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	cryptoService "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/service"
	rotationDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/rotation/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// passthroughTxManager runs fn without a transaction.
type passthroughTxManager struct{}

func (passthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func randomKeyB64(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

// testKeys holds the key slots shared by the ciphers of one test.
type testKeys struct {
	v1, v2, v3, hmac string
}

func newTestKeys(t *testing.T) testKeys {
	return testKeys{v1: randomKeyB64(t), v2: randomKeyB64(t), v3: randomKeyB64(t), hmac: randomKeyB64(t)}
}

// cipherWith builds a field cipher and blind indexer over the given slots.
func cipherWith(
	t *testing.T,
	slots cryptoService.StaticKeySource,
	current string,
) (*cryptoService.FieldCipher, *cryptoService.BlindIndexer) {
	t.Helper()
	registry, err := cryptoService.NewKeyRegistry(slots, cryptoService.NewAEADManager(), nil, current, "aes-gcm")
	require.NoError(t, err)
	return cryptoService.NewFieldCipher(registry, newTestLogger(), nil), cryptoService.NewBlindIndexer(registry)
}

func encryptWith(t *testing.T, cipher *cryptoService.FieldCipher, plaintext string) *string {
	t.Helper()
	out, err := cipher.EncryptString(context.Background(), plaintext)
	require.NoError(t, err)
	return &out
}

func ptr(s string) *string {
	return &s
}

// memoryRecordRepository is an in-memory RecordRepository keyed by table name.
type memoryRecordRepository struct {
	mu          sync.Mutex
	tables      map[string][]*rotationDomain.Record
	listCalls   int
	updateCalls int
	updateErr   error
	onList      func(call int)
}

func newMemoryRecordRepository() *memoryRecordRepository {
	return &memoryRecordRepository{tables: make(map[string][]*rotationDomain.Record)}
}

func (m *memoryRecordRepository) insert(table string, fields map[string]*string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	record := &rotationDomain.Record{ID: uuid.Must(uuid.NewV7()), Fields: make(map[string]*string)}
	for k, v := range fields {
		if v != nil {
			record.Fields[k] = ptr(*v)
		}
	}
	m.tables[table] = append(m.tables[table], record)
	slices.SortFunc(m.tables[table], func(a, b *rotationDomain.Record) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return record.ID
}

func (m *memoryRecordRepository) field(table string, id uuid.UUID, column string) *string {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, record := range m.tables[table] {
		if record.ID == id {
			return record.Fields[column]
		}
	}
	return nil
}

func (m *memoryRecordRepository) ListBatch(
	_ context.Context,
	table rotationDomain.TableSpec,
	afterID uuid.UUID,
	limit int,
) ([]*rotationDomain.Record, error) {
	m.mu.Lock()
	m.listCalls++
	call := m.listCalls

	records := make([]*rotationDomain.Record, 0, limit)
	for _, record := range m.tables[table.Name] {
		if bytes.Compare(record.ID[:], afterID[:]) <= 0 {
			continue
		}
		if len(records) == limit {
			break
		}
		fields := make(map[string]*string)
		for _, column := range table.Columns() {
			if v := record.Fields[column]; v != nil {
				fields[column] = ptr(*v)
			}
		}
		records = append(records, &rotationDomain.Record{ID: record.ID, Fields: fields})
	}
	m.mu.Unlock()

	if m.onList != nil {
		m.onList(call)
	}
	return records, nil
}

func (m *memoryRecordRepository) set(table string, id uuid.UUID, column string, value *string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, record := range m.tables[table] {
		if record.ID == id {
			record.Fields[column] = value
		}
	}
}

func (m *memoryRecordRepository) Update(
	_ context.Context,
	table rotationDomain.TableSpec,
	updates []*rotationDomain.RecordUpdate,
) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateCalls++
	if m.updateErr != nil {
		return nil, m.updateErr
	}

	var stale []uuid.UUID
	for _, update := range updates {
		for _, record := range m.tables[table.Name] {
			if record.ID != update.ID {
				continue
			}
			unchanged := true
			for column := range update.Fields {
				if !slices.Contains(table.Columns(), column) {
					panic("unknown column " + column)
				}
				if !equalNullable(record.Fields[column], update.Expected[column]) {
					unchanged = false
				}
			}
			if !unchanged {
				stale = append(stale, update.ID)
				continue
			}
			for column, value := range update.Fields {
				record.Fields[column] = value
			}
		}
	}
	return stale, nil
}

func equalNullable(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func hasVersion(value *string, version string) bool {
	return value != nil && strings.HasPrefix(*value, "enc:"+version+":")
}

var (
	_ FieldCipher  = (*cryptoService.FieldCipher)(nil)
	_ BlindIndexer = (*cryptoService.BlindIndexer)(nil)
)
