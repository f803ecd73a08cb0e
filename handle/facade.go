// Package handle is the Handle Facade (spec.md §4.7): the single public
// entry to the core. It adds no synchronization beyond awaiting each
// call's completion, and never reduces a structured error to a string.
package handle

import (
	"context"

	"go.sqlitecoord.dev/core/node"
)

// Handle is the public surface spec.md §6 describes: query and
// wipe_and_recreate, each returning either a JSON-encoded value or a
// structured error.
type Handle struct {
	node *node.Node
}

// New wraps a running Node (one that has had Run started in its own
// goroutine) as a Handle.
func New(n *node.Node) *Handle {
	return &Handle{node: n}
}

// Query dispatches sql (with optional positional params) via the Query
// Router and returns the JSON-encoded result value. The error returned,
// when non-nil, is always a *dberrors.Error (or a context error on
// cancellation), never a bare string.
func (h *Handle) Query(ctx context.Context, sql string, params ...any) (string, error) {
	return h.node.Query(ctx, sql, params)
}

// WipeAndRecreate drops every table, view, index, and trigger in the
// database (spec.md §4.1), a leader-only effect reached via the router
// regardless of which node's Handle calls it.
func (h *Handle) WipeAndRecreate(ctx context.Context) error {
	return h.node.WipeAndRecreate(ctx)
}
