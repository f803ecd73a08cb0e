// Package election is Leader Election & Lifecycle (spec.md §4.4): exactly
// one node per Origin owns the database at a time, by holding an
// origin-scoped exclusive lock for the life of the context.
//
// Uses a one-shot ("has this happened yet") signal for announcing the
// moment leadership is won, and a lock-then-never-return idiom through
// lock.Broker for holding the lock.
package election

import (
	"context"

	log "github.com/sirupsen/logrus"

	"go.sqlitecoord.dev/core/async"
	"go.sqlitecoord.dev/core/lock"
)

// LockName is the origin-scoped exclusive lock spec.md §6 names.
const LockName = "sqlite-database"

// Elector races for origin leadership via a lock.Broker.
type Elector struct {
	broker *lock.Broker
	won    async.Promise
}

// NewElector returns an Elector racing on the given Broker (shared by
// every node in the Origin).
func NewElector(broker *lock.Broker) *Elector {
	return &Elector{broker: broker, won: make(async.Promise)}
}

// Won returns a Promise that resolves the first time this Elector is
// granted leadership, Promise is inherently one-shot, so it does not
// re-arm on a later loss-and-reacquisition; callers that care about
// every term should observe onElected's invocation instead.
func (e *Elector) Won() async.Promise { return e.won }

// Run blocks until ctx is done. It acquires LockName (waiting as long as
// necessary, queued behind whichever node currently holds it), then
// invokes onElected with a context scoped to the lock's lifetime. Per
// spec.md §4.4, onElected must never return while it wishes to remain
// leader: if it returns (successfully or with an error), Run releases
// the lock and immediately re-contends, since losing the lock while
// still wanting leadership is indistinguishable from a bug in onElected.
// Run itself returns only when ctx is done.
func (e *Elector) Run(ctx context.Context, onElected func(context.Context) error) error {
	var firstTerm = true
	for {
		release, err := e.broker.Acquire(ctx, LockName)
		if err != nil {
			return ctx.Err()
		}

		if firstTerm {
			e.won.Resolve()
			firstTerm = false
		}
		log.Debug("acquired leadership lock")

		err = onElected(ctx)
		release()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.WithError(err).Warn("leadership handler returned; re-contending")
		}
	}
}
