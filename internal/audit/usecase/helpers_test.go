package usecase

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// passthroughTxManager runs fn without a transaction.
type passthroughTxManager struct{}

func (passthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// noopLocker lets concurrent appends race so the uniqueness check and retry path are exercised.
type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

// memoryEntryRepository is an in-memory EntryRepository that enforces the
// (organization_id, sequence_number) uniqueness constraint.
type memoryEntryRepository struct {
	mu               sync.Mutex
	chains           map[string][]*auditDomain.Entry
	createCalls      int
	markVerifiedCall int
	conflictsToForce int
	markVerifiedErr  error
}

func newMemoryEntryRepository() *memoryEntryRepository {
	return &memoryEntryRepository{chains: make(map[string][]*auditDomain.Entry)}
}

func copyEntry(e *auditDomain.Entry) *auditDomain.Entry {
	out := *e
	out.Changes = e.Changes.Clone()
	out.PreviousValues = e.PreviousValues.Clone()
	out.Metadata = e.Metadata.Clone()
	return &out
}

func (m *memoryEntryRepository) Create(_ context.Context, entry *auditDomain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if m.conflictsToForce > 0 {
		m.conflictsToForce--
		return auditDomain.ErrSequenceConflict
	}

	chain := m.chains[entry.OrganizationID]
	for _, existing := range chain {
		if existing.SequenceNumber == entry.SequenceNumber {
			return auditDomain.ErrSequenceConflict
		}
	}

	chain = append(chain, copyEntry(entry))
	sort.Slice(chain, func(i, j int) bool { return chain[i].SequenceNumber < chain[j].SequenceNumber })
	m.chains[entry.OrganizationID] = chain
	return nil
}

func (m *memoryEntryRepository) LatestHead(_ context.Context, organizationID string) (*auditDomain.ChainHead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chain := m.chains[organizationID]
	if len(chain) == 0 {
		return nil, nil
	}
	last := chain[len(chain)-1]
	return &auditDomain.ChainHead{SequenceNumber: last.SequenceNumber, CurrentHash: last.CurrentHash}, nil
}

func (m *memoryEntryRepository) ListAscending(
	_ context.Context,
	organizationID string,
	afterSequence int64,
	limit int,
) ([]*auditDomain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*auditDomain.Entry, 0)
	for _, e := range m.chains[organizationID] {
		if e.SequenceNumber > afterSequence && len(out) < limit {
			out = append(out, copyEntry(e))
		}
	}
	return out, nil
}

func (m *memoryEntryRepository) MarkVerified(_ context.Context, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.markVerifiedCall++
	if m.markVerifiedErr != nil {
		return m.markVerifiedErr
	}
	for _, chain := range m.chains {
		for _, e := range chain {
			if slices.Contains(ids, e.ID) {
				e.IsIntegrityVerified = true
			}
		}
	}
	return nil
}

func (m *memoryEntryRepository) matching(filter auditDomain.ListFilter) []*auditDomain.Entry {
	var out []*auditDomain.Entry
	chain := m.chains[filter.OrganizationID]
	for i := len(chain) - 1; i >= 0; i-- {
		e := chain[i]
		switch {
		case filter.EntityType != "" && e.EntityType != filter.EntityType,
			filter.EntityID != "" && e.EntityID != filter.EntityID,
			filter.UserID != "" && e.Actor.UserID != filter.UserID,
			filter.Action != "" && e.Action != filter.Action,
			filter.StartTime != 0 && e.Timestamp < filter.StartTime,
			filter.EndTime != 0 && e.Timestamp > filter.EndTime:
			continue
		}
		if term := strings.ToLower(filter.SearchTerm); term != "" &&
			!strings.Contains(strings.ToLower(e.EntityName), term) &&
			!strings.Contains(strings.ToLower(e.EntityType), term) &&
			!strings.Contains(strings.ToLower(e.Actor.UserEmail), term) &&
			!strings.Contains(strings.ToLower(e.Actor.UserName), term) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (m *memoryEntryRepository) List(_ context.Context, filter auditDomain.ListFilter) ([]*auditDomain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.matching(filter)
	out := make([]*auditDomain.Entry, 0)
	for i := filter.Offset; i < len(all) && len(out) < filter.Limit; i++ {
		out = append(out, copyEntry(all[i]))
	}
	return out, nil
}

func (m *memoryEntryRepository) Count(_ context.Context, filter auditDomain.ListFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matching(filter)), nil
}

func (m *memoryEntryRepository) Stats(
	_ context.Context,
	organizationID string,
	start, end int64,
) (*auditDomain.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &auditDomain.Stats{
		ByAction:     map[string]int{},
		ByEntityType: map[string]int{},
		ByUser:       map[string]int{},
	}
	for _, e := range m.matching(auditDomain.ListFilter{OrganizationID: organizationID, StartTime: start, EndTime: end}) {
		stats.TotalLogs++
		stats.ByAction[string(e.Action)]++
		stats.ByEntityType[e.EntityType]++
		stats.ByUser[e.Actor.UserEmail]++
	}
	return stats, nil
}

func (m *memoryEntryRepository) ListOrganizations(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.chains))
	for org := range m.chains {
		out = append(out, org)
	}
	slices.Sort(out)
	return out, nil
}

// tamper mutates a stored entry in place, simulating a write that bypassed the application.
func (m *memoryEntryRepository) tamper(organizationID string, seq int64, fn func(e *auditDomain.Entry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.chains[organizationID] {
		if e.SequenceNumber == seq {
			fn(e)
		}
	}
}

// remove deletes a stored entry, simulating a row dropped outside the application.
func (m *memoryEntryRepository) remove(organizationID string, seq int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chains[organizationID] = slices.DeleteFunc(m.chains[organizationID], func(e *auditDomain.Entry) bool {
		return e.SequenceNumber == seq
	})
}

func (m *memoryEntryRepository) stored(organizationID string) []*auditDomain.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*auditDomain.Entry, 0, len(m.chains[organizationID]))
	for _, e := range m.chains[organizationID] {
		out = append(out, copyEntry(e))
	}
	return out
}

func appendInput(org string, action auditDomain.Action, entityID string) *AppendInput {
	return &AppendInput{
		OrganizationID: org,
		Actor: auditDomain.Actor{
			UserID:    "user-1",
			UserEmail: "coordinator@example.com",
			UserName:  "Sam Coordinator",
		},
		Action:     action,
		EntityType: "incident",
		EntityID:   entityID,
		EntityName: "Incident " + entityID,
		Changes:    auditDomain.Diff{"status": "open"},
	}
}
