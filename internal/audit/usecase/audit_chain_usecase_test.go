package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
	auditService "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/service"
	apperrors "github.com/kvhuynh79-oss/sda-management-sub004/internal/errors"
)

type failingLocker struct{ err error }

func (f failingLocker) Lock(context.Context, string) (func(), error) {
	return nil, f.err
}

func newTestAuditChain(repo EntryRepository, locker auditService.AppendLocker, maxRetries int) AuditChainUseCase {
	return NewAuditChainUseCase(
		passthroughTxManager{},
		repo,
		auditService.NewChainHasher(),
		locker,
		maxRetries,
		newTestLogger(),
	)
}

func TestAuditChainUseCase_Append(t *testing.T) {
	ctx := context.Background()
	hasher := auditService.NewChainHasher()

	t.Run("Success_FirstEntryStartsChain", func(t *testing.T) {
		repo := newMemoryEntryRepository()
		uc := newTestAuditChain(repo, auditService.NewLocalAppendLocker(), 3)

		entry, err := uc.Append(ctx, appendInput("org1", auditDomain.ActionCreate, "inc-1"))
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, entry.ID)
		assert.Equal(t, int64(1), entry.SequenceNumber)
		assert.Empty(t, entry.PreviousHash)
		assert.Len(t, entry.CurrentHash, 64)
		assert.False(t, entry.IsIntegrityVerified)
		assert.Positive(t, entry.Timestamp)
		assert.True(t, hasher.Verify(entry))
		assert.Len(t, repo.stored("org1"), 1)
	})

	t.Run("Success_EntriesLinkByHash", func(t *testing.T) {
		repo := newMemoryEntryRepository()
		uc := newTestAuditChain(repo, auditService.NewLocalAppendLocker(), 3)

		first, err := uc.Append(ctx, appendInput("org1", auditDomain.ActionCreate, "inc-1"))
		require.NoError(t, err)
		second, err := uc.Append(ctx, appendInput("org1", auditDomain.ActionUpdate, "inc-1"))
		require.NoError(t, err)

		assert.Equal(t, int64(2), second.SequenceNumber)
		assert.Equal(t, first.CurrentHash, second.PreviousHash)
		assert.NotEqual(t, first.CurrentHash, second.CurrentHash)
	})

	t.Run("Success_OrganizationsHaveIndependentChains", func(t *testing.T) {
		repo := newMemoryEntryRepository()
		uc := newTestAuditChain(repo, auditService.NewLocalAppendLocker(), 3)

		_, err := uc.Append(ctx, appendInput("org1", auditDomain.ActionCreate, "inc-1"))
		require.NoError(t, err)
		other, err := uc.Append(ctx, appendInput("org2", auditDomain.ActionCreate, "inc-9"))
		require.NoError(t, err)

		assert.Equal(t, int64(1), other.SequenceNumber)
		assert.Empty(t, other.PreviousHash)
	})

	t.Run("Success_InputDiffsAreCopied", func(t *testing.T) {
		repo := newMemoryEntryRepository()
		uc := newTestAuditChain(repo, auditService.NewLocalAppendLocker(), 3)

		input := appendInput("org1", auditDomain.ActionUpdate, "inc-1")
		entry, err := uc.Append(ctx, input)
		require.NoError(t, err)

		input.Changes["status"] = "rewritten after the fact"
		assert.Equal(t, "open", entry.Changes["status"])
		assert.True(t, hasher.Verify(entry))
	})

	t.Run("Success_RetriesAfterSequenceConflict", func(t *testing.T) {
		repo := newMemoryEntryRepository()
		repo.conflictsToForce = 2
		uc := newTestAuditChain(repo, auditService.NewLocalAppendLocker(), 5)

		entry, err := uc.Append(ctx, appendInput("org1", auditDomain.ActionCreate, "inc-1"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), entry.SequenceNumber)
		assert.Equal(t, 3, repo.createCalls)
	})

	t.Run("Error_RetriesExhausted", func(t *testing.T) {
		repo := newMemoryEntryRepository()
		repo.conflictsToForce = 10
		uc := newTestAuditChain(repo, auditService.NewLocalAppendLocker(), 3)

		_, err := uc.Append(ctx, appendInput("org1", auditDomain.ActionCreate, "inc-1"))
		assert.ErrorIs(t, err, auditDomain.ErrSequenceConflict)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.Equal(t, 3, repo.createCalls)
	})

	t.Run("Error_LockFailure", func(t *testing.T) {
		repo := newMemoryEntryRepository()
		lockErr := errors.New("redis unavailable")
		uc := newTestAuditChain(repo, failingLocker{err: lockErr}, 3)

		_, err := uc.Append(ctx, appendInput("org1", auditDomain.ActionCreate, "inc-1"))
		assert.ErrorIs(t, err, lockErr)
		assert.Zero(t, repo.createCalls)
	})

	invalid := map[string]func(in *AppendInput){
		"Error_MissingOrganization": func(in *AppendInput) { in.OrganizationID = "" },
		"Error_BlankOrganization":   func(in *AppendInput) { in.OrganizationID = "   " },
		"Error_PaddedOrganization":  func(in *AppendInput) { in.OrganizationID = "org1 " },
		"Error_PaddedUser":          func(in *AppendInput) { in.Actor.UserID = " user-1" },
		"Error_UnknownAction":       func(in *AppendInput) { in.Action = "purge" },
		"Error_MissingAction":       func(in *AppendInput) { in.Action = "" },
		"Error_MissingEntityType":   func(in *AppendInput) { in.EntityType = "" },
		"Error_MissingUser":         func(in *AppendInput) { in.Actor.UserID = "" },
		"Error_BadEmail":            func(in *AppendInput) { in.Actor.UserEmail = "not-an-email" },
		"Error_ControlCharacters":   func(in *AppendInput) { in.EntityID = "inc\n1" },
		"Error_InvalidUTF8Change": func(in *AppendInput) {
			in.Changes = auditDomain.Diff{"ndisNumber": "abc\xff\xfe"}
		},
		"Error_NulInPreviousValue": func(in *AppendInput) {
			in.PreviousValues = auditDomain.Diff{"notes": "before\x00after"}
		},
		"Error_InvalidUTF8MetadataKey": func(in *AppendInput) {
			in.Metadata = auditDomain.Diff{"src\xc3": "web"}
		},
		"Error_ControlCharInDiffKey": func(in *AppendInput) {
			in.Changes = auditDomain.Diff{"status\n": "closed"}
		},
		"Error_InvalidUTF8EntityName": func(in *AppendInput) { in.EntityName = "Unit \xff" },
	}
	for name, mutate := range invalid {
		t.Run(name, func(t *testing.T) {
			repo := newMemoryEntryRepository()
			uc := newTestAuditChain(repo, auditService.NewLocalAppendLocker(), 3)

			input := appendInput("org1", auditDomain.ActionCreate, "inc-1")
			mutate(input)

			_, err := uc.Append(ctx, input)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Zero(t, repo.createCalls)
		})
	}

	t.Run("Error_NilInput", func(t *testing.T) {
		uc := newTestAuditChain(newMemoryEntryRepository(), auditService.NewLocalAppendLocker(), 3)
		_, err := uc.Append(ctx, nil)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Success_MultilineDiffValueKept", func(t *testing.T) {
		repo := newMemoryEntryRepository()
		uc := newTestAuditChain(repo, auditService.NewLocalAppendLocker(), 3)
		input := appendInput("org1", auditDomain.ActionUpdate, "inc-1")
		input.Changes = auditDomain.Diff{"notes": "Zoë called.\nFollow up Monday."}

		entry, err := uc.Append(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, "Zoë called.\nFollow up Monday.", entry.Changes["notes"])
		assert.True(t, hasher.Verify(entry))
	})

	t.Run("Success_EmptyEmailAllowed", func(t *testing.T) {
		uc := newTestAuditChain(newMemoryEntryRepository(), auditService.NewLocalAppendLocker(), 3)
		input := appendInput("org1", auditDomain.ActionKeyRotation, "")
		input.Actor = auditDomain.Actor{UserID: "system"}
		_, err := uc.Append(ctx, input)
		assert.NoError(t, err)
	})
}

func assertChainIsContiguous(t *testing.T, entries []*auditDomain.Entry) {
	t.Helper()
	hasher := auditService.NewChainHasher()
	prev := ""
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.SequenceNumber)
		assert.Equal(t, prev, e.PreviousHash, "entry %d", e.SequenceNumber)
		assert.True(t, hasher.Verify(e), "entry %d", e.SequenceNumber)
		prev = e.CurrentHash
	}
}

func TestAuditChainUseCase_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	const n = 40

	lockers := map[string]struct {
		locker     auditService.AppendLocker
		maxRetries int
	}{
		"LocalLocker": {locker: auditService.NewLocalAppendLocker(), maxRetries: 1},
		"UniqueOnly":  {locker: noopLocker{}, maxRetries: n * 2},
	}

	for name, tc := range lockers {
		t.Run("Success_"+name, func(t *testing.T) {
			repo := newMemoryEntryRepository()
			uc := newTestAuditChain(repo, tc.locker, tc.maxRetries)

			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := uc.Append(ctx, appendInput("org1", auditDomain.ActionUpdate, fmt.Sprintf("inc-%d", i)))
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				require.NoError(t, err)
			}

			entries := repo.stored("org1")
			require.Len(t, entries, n)
			assertChainIsContiguous(t, entries)
		})
	}
}

func TestAuditChainUseCase_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryEntryRepository()
	uc := newTestAuditChain(repo, auditService.NewLocalAppendLocker(), 3)

	entry, err := uc.Append(ctx, appendInput("org1", auditDomain.ActionCreate, "inc-1"))
	require.NoError(t, err)

	t.Run("Error_SingleDeleteIsForbidden", func(t *testing.T) {
		err := uc.Delete(ctx, "org1", entry.ID)
		assert.ErrorIs(t, err, auditDomain.ErrImmutable)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Contains(t, err.Error(), "regulatory compliance")
	})

	t.Run("Error_BulkDeleteIsForbidden", func(t *testing.T) {
		err := uc.BulkDelete(ctx, "org1", []uuid.UUID{entry.ID, uuid.New()})
		assert.ErrorIs(t, err, auditDomain.ErrImmutable)
	})

	t.Run("Success_StorageUntouched", func(t *testing.T) {
		stored := repo.stored("org1")
		require.Len(t, stored, 1)
		assert.Equal(t, entry.CurrentHash, stored[0].CurrentHash)
	})
}

func TestAuditChainUseCase_Queries(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryEntryRepository()
	uc := newTestAuditChain(repo, auditService.NewLocalAppendLocker(), 3)

	for i := range 30 {
		input := appendInput("org1", auditDomain.ActionUpdate, "inc-1")
		if i%3 == 0 {
			input = appendInput("org1", auditDomain.ActionView, fmt.Sprintf("inc-%d", i))
			input.EntityType = "participant"
			input.EntityName = "Jordan Lee"
			input.Actor = auditDomain.Actor{UserID: "user-2", UserEmail: "support@example.com", UserName: "Alex"}
		}
		_, err := uc.Append(ctx, input)
		require.NoError(t, err)
	}

	t.Run("Success_ListNewestFirstWithPaging", func(t *testing.T) {
		result, err := uc.List(ctx, auditDomain.ListFilter{OrganizationID: "org1", Limit: 10})
		require.NoError(t, err)
		assert.Len(t, result.Entries, 10)
		assert.Equal(t, 30, result.TotalCount)
		assert.True(t, result.HasMore)
		assert.Equal(t, int64(30), result.Entries[0].SequenceNumber)

		result, err = uc.List(ctx, auditDomain.ListFilter{OrganizationID: "org1", Offset: 20, Limit: 10})
		require.NoError(t, err)
		assert.Len(t, result.Entries, 10)
		assert.False(t, result.HasMore)
	})

	t.Run("Success_ListFilters", func(t *testing.T) {
		result, err := uc.List(ctx, auditDomain.ListFilter{
			OrganizationID: "org1",
			Action:         auditDomain.ActionView,
		})
		require.NoError(t, err)
		assert.Equal(t, 10, result.TotalCount)

		result, err = uc.List(ctx, auditDomain.ListFilter{OrganizationID: "org1", SearchTerm: "JORDAN"})
		require.NoError(t, err)
		assert.Equal(t, 10, result.TotalCount)
	})

	t.Run("Success_ListClampsLimit", func(t *testing.T) {
		result, err := uc.List(ctx, auditDomain.ListFilter{OrganizationID: "org1", Limit: 1000})
		require.NoError(t, err)
		assert.Len(t, result.Entries, 30)
	})

	t.Run("Error_ListRequiresOrganization", func(t *testing.T) {
		_, err := uc.List(ctx, auditDomain.ListFilter{})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Error_ListPaddedOrganization", func(t *testing.T) {
		_, err := uc.List(ctx, auditDomain.ListFilter{OrganizationID: "org1 "})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Error_ListUnknownAction", func(t *testing.T) {
		_, err := uc.List(ctx, auditDomain.ListFilter{OrganizationID: "org1", Action: "purge"})
		assert.ErrorIs(t, err, auditDomain.ErrInvalidAction)
	})

	t.Run("Success_EntityHistoryDefaultLimit", func(t *testing.T) {
		entries, err := uc.EntityHistory(ctx, "org1", "incident", "inc-1", 0)
		require.NoError(t, err)
		assert.Len(t, entries, 20)
		for _, e := range entries {
			assert.Equal(t, "inc-1", e.EntityID)
		}
	})

	t.Run("Success_UserActivity", func(t *testing.T) {
		entries, err := uc.UserActivity(ctx, "org1", "user-2", 0)
		require.NoError(t, err)
		assert.Len(t, entries, 10)

		entries, err = uc.UserActivity(ctx, "org1", "user-2", 3)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})

	t.Run("Success_Stats", func(t *testing.T) {
		stats, err := uc.Stats(ctx, "org1", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 30, stats.TotalLogs)
		assert.Equal(t, 10, stats.ByAction["view"])
		assert.Equal(t, 20, stats.ByAction["update"])
		assert.Equal(t, 10, stats.ByEntityType["participant"])
		assert.Equal(t, 20, stats.ByUser["coordinator@example.com"])
	})

	t.Run("Error_StatsRequiresOrganization", func(t *testing.T) {
		_, err := uc.Stats(ctx, "", 0, 0)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}
