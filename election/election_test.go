package election

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.sqlitecoord.dev/core/lock"
)

func TestElectorBecomesLeaderAndBlocksUntilCancel(t *testing.T) {
	var broker = lock.NewBroker()
	var e = NewElector(broker)
	var ctx, cancel = context.WithCancel(context.Background())

	var elected atomic.Bool
	var done = make(chan error, 1)
	go func() {
		done <- e.Run(ctx, func(ctx context.Context) error {
			elected.Store(true)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	select {
	case <-e.Won():
	case <-time.After(time.Second):
		t.Fatal("elector never won leadership")
	}
	require.True(t, elected.Load())

	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestSecondElectorWaitsForFirstToStepDown(t *testing.T) {
	var broker = lock.NewBroker()
	var e1 = NewElector(broker)
	var e2 = NewElector(broker)
	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	var e1Ctx, e1Cancel = context.WithCancel(ctx)
	go e1.Run(e1Ctx, func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() })

	<-e1.Won()

	var e2Done = make(chan error, 1)
	go func() { e2Done <- e2.Run(ctx, func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }) }()

	select {
	case <-e2.Won():
		t.Fatal("second elector should not win while first holds the lock")
	case <-time.After(30 * time.Millisecond):
	}

	e1Cancel()

	select {
	case <-e2.Won():
	case <-time.After(time.Second):
		t.Fatal("second elector never won after first stepped down")
	}
}
