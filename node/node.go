// Package node realizes the platform's "browser context" (spec.md §3) as
// a single Go value: one Node per would-be writer, sharing an Origin
// (and therefore a lock.Broker and a bus.Bus) with every other Node
// contending for the same database.
package node

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"go.sqlitecoord.dev/core/bus"
	"go.sqlitecoord.dev/core/election"
	"go.sqlitecoord.dev/core/lock"
	"go.sqlitecoord.dev/core/metrics"
	"go.sqlitecoord.dev/core/router"
	"go.sqlitecoord.dev/core/storage"
)

// Origin is the shared coordination surface of one logical database: the
// broker every Node in the origin contends on for leadership, the bus
// every Node publishes and subscribes to, and the on-disk location the
// eventual leader's Storage Adapter opens.
type Origin struct {
	Dir          string
	DatabaseName string
	Broker       *lock.Broker
	Bus          *bus.Bus
}

// NewOrigin returns an Origin with a fresh Broker and Bus, ready to be
// shared by every Node constructed against it.
func NewOrigin(dir, databaseName string) *Origin {
	return &Origin{
		Dir:          dir,
		DatabaseName: databaseName,
		Broker:       lock.NewBroker(),
		Bus:          bus.New(),
	}
}

// Node is one context's view of the database core: a Context Identity, a
// Leadership State flag, and (once elected) the Storage Adapter it alone
// holds open. Non-leader Nodes route every query over the bus.
type Node struct {
	ID       uuid.UUID
	origin   *Origin
	isLeader atomic.Bool
	elector  *election.Elector
	router   *router.Router
}

// New constructs a Node against origin. Call Run to join leadership
// contention and start serving bus traffic; Node is otherwise inert.
func New(origin *Origin, routerTimeout time.Duration) *Node {
	var n = &Node{
		ID:     uuid.New(),
		origin: origin,
	}
	n.elector = election.NewElector(origin.Broker)
	n.router = router.New(origin.Bus, &n.isLeader, routerTimeout)
	return n
}

// IsLeader reports this node's current Leadership State.
func (n *Node) IsLeader() bool { return n.isLeader.Load() }

// Query dispatches sqlText (with optional params) via the Query Router
// (spec.md §4.6), returning the JSON-encoded value on success.
func (n *Node) Query(ctx context.Context, sqlText string, params []any) (string, error) {
	return n.router.Query(ctx, sqlText, params)
}

// WipeAndRecreate executes the Storage Adapter's Wipe via the router,
// producing the same leader-only, bus-forwarded effect an ordinary query
// would (spec.md §4.7).
func (n *Node) WipeAndRecreate(ctx context.Context) error {
	_, err := n.router.Query(ctx, router.WipeSentinelSQL, nil)
	return err
}

// Run joins leadership contention and serves bus traffic until ctx is
// done. It blocks for the life of ctx (mirroring spec.md §4.4's "never
// returns" handler contract) and should be run in its own goroutine.
func (n *Node) Run(ctx context.Context) error {
	go n.router.Serve(ctx)

	return n.elector.Run(ctx, func(ctx context.Context) error {
		var adapter = storage.New(storage.Config{Dir: n.origin.Dir, DatabaseName: n.origin.DatabaseName})
		if err := adapter.Open(ctx); err != nil {
			return err
		}
		defer adapter.Close()
		defer n.router.SetAdapter(nil)
		defer n.isLeader.Store(false)
		defer metrics.NodeIsLeader.Set(0)

		n.router.SetAdapter(adapter)
		n.isLeader.Store(true)
		metrics.NodeIsLeader.Set(1)
		metrics.LeaderElectionTotal.Inc()
		n.origin.Bus.Publish(bus.Message{Type: bus.NewLeader, LeaderID: n.ID.String()})
		log.WithField("node", n.ID).Info("elected leader")

		<-ctx.Done()
		return ctx.Err()
	})
}
