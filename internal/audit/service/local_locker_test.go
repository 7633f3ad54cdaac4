package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalAppendLocker(t *testing.T) {
	t.Run("Success_SerializesOneOrganization", func(t *testing.T) {
		locker := NewLocalAppendLocker()
		var inside, maxInside atomic.Int32
		var wg sync.WaitGroup

		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := locker.Lock(context.Background(), "org1")
				require.NoError(t, err)
				defer unlock()

				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), maxInside.Load())
		assert.Equal(t, 0, locker.size())
	})

	t.Run("Success_OrganizationsAreIndependent", func(t *testing.T) {
		locker := NewLocalAppendLocker()
		unlock1, err := locker.Lock(context.Background(), "org1")
		require.NoError(t, err)
		defer unlock1()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		unlock2, err := locker.Lock(ctx, "org2")
		require.NoError(t, err)
		unlock2()
	})

	t.Run("Success_UnlockIsIdempotent", func(t *testing.T) {
		locker := NewLocalAppendLocker()
		unlock, err := locker.Lock(context.Background(), "org1")
		require.NoError(t, err)
		unlock()
		unlock()

		unlock, err = locker.Lock(context.Background(), "org1")
		require.NoError(t, err)
		unlock()
		assert.Equal(t, 0, locker.size())
	})

	t.Run("Error_ContextCancelledWhileWaiting", func(t *testing.T) {
		locker := NewLocalAppendLocker()
		unlock, err := locker.Lock(context.Background(), "org1")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(ctx, "org1")
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		unlock()
		assert.Equal(t, 0, locker.size())
	})
}
