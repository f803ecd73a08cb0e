package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireIsExclusive(t *testing.T) {
	var b = NewBroker()
	var ctx = context.Background()

	release, err := b.Acquire(ctx, "origin-a")
	require.NoError(t, err)

	var secondAcquired atomic.Bool
	var done = make(chan struct{})
	go func() {
		r, err := b.Acquire(ctx, "origin-a")
		require.NoError(t, err)
		secondAcquired.Store(true)
		r()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	require.False(t, secondAcquired.Load())

	release()
	<-done
	require.True(t, secondAcquired.Load())
}

func TestAcquireDistinctNamesDoNotBlock(t *testing.T) {
	var b = NewBroker()
	var ctx = context.Background()

	r1, err := b.Acquire(ctx, "a")
	require.NoError(t, err)
	r2, err := b.Acquire(ctx, "b")
	require.NoError(t, err)
	r1()
	r2()
}

func TestAcquireRespectsCancellation(t *testing.T) {
	var b = NewBroker()
	var ctx = context.Background()

	release, err := b.Acquire(ctx, "x")
	require.NoError(t, err)
	defer release()

	var cctx, cancel = context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()

	_, err = b.Acquire(cctx, "x")
	require.Error(t, err)
}

func TestBrokerReclaimsUnreferencedEntries(t *testing.T) {
	var b = NewBroker()
	var ctx = context.Background()

	release, err := b.Acquire(ctx, "once")
	require.NoError(t, err)
	release()

	b.mu.Lock()
	_, stillPresent := b.byName["once"]
	b.mu.Unlock()
	require.False(t, stillPresent)
}

func TestManyWaitersEventuallyAllAcquire(t *testing.T) {
	var b = NewBroker()
	var ctx = context.Background()
	var wg sync.WaitGroup
	var counter int
	var mu sync.Mutex

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := b.Acquire(ctx, "shared")
			require.NoError(t, err)
			mu.Lock()
			counter++
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	require.Equal(t, 20, counter)
}
