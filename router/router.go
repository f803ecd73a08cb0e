// Package router is the Query Router (spec.md §4.6): the single decision
// point for every SQL submission, executing locally when leader or
// forwarding over the Inter-Context Bus and awaiting a reply otherwise.
//
// oneShot[T] generalizes a one-shot, payload-less notification primitive
// to carry a value-or-error payload. Pending outstanding work is tracked
// in a per-instance table keyed by a generated id, specialized here to the
// Pending Query Table spec.md §3 describes.
package router

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"go.sqlitecoord.dev/core/bus"
	"go.sqlitecoord.dev/core/dberrors"
	"go.sqlitecoord.dev/core/metrics"
	"go.sqlitecoord.dev/core/sqlstmt"
	"go.sqlitecoord.dev/core/storage"
)

// DefaultTimeout is the follower wait deadline spec.md §6's router_timeout
// knob defaults to.
const DefaultTimeout = 5 * time.Second

// WipeSentinelSQL is a comment-only SQL payload that executeLocal
// recognizes as a request to run Adapter.Wipe instead of preparing and
// executing engine SQL. It travels the same QueryRequest/QueryResponse
// path as any other query (spec.md §4.7's "leader-only effect" via the
// router), without requiring a fourth bus message variant.
const WipeSentinelSQL = "--sqlitecoord:wipe-and-recreate--"

// oneShot is a one-shot value-or-error completion, generalizing the
// teacher's async.Promise (a payload-less notification) to carry a
// result. Reading is done via the channel returned by C(); the result is
// sent exactly once into a one-slot buffer, so resolve never blocks. The
// channel is not closed.
type oneShot[T any] struct {
	ch chan T
}

func newOneShot[T any]() *oneShot[T] {
	return &oneShot[T]{ch: make(chan T, 1)}
}

func (o *oneShot[T]) resolve(v T) {
	o.ch <- v
}

func (o *oneShot[T]) C() <-chan T { return o.ch }

// outcome is the value-or-error result of one query, in the form both the
// local leader path and the bus QueryResponse path produce.
type outcome struct {
	value string
	err   *dberrors.Error
}

// Router is a per-node query router sharing a Bus with the rest of the
// node. Its Storage Adapter is set only while the node is leader; it
// holds no adapter at construction time, since a node's leadership can
// be won and lost many times across Router's lifetime.
type Router struct {
	bus      *bus.Bus
	adapter  atomic.Pointer[storage.Adapter]
	isLeader *atomic.Bool
	timeout  time.Duration

	mu      sync.Mutex
	pending map[string]*oneShot[outcome]
}

// New returns a Router with no adapter set. isLeader is shared with the
// owning node (the same flag node.Run's election handler sets) so the
// router always observes current leadership state without its own
// coordination.
func New(b *bus.Bus, isLeader *atomic.Bool, timeout time.Duration) *Router {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Router{
		bus:      b,
		isLeader: isLeader,
		timeout:  timeout,
		pending:  make(map[string]*oneShot[outcome]),
	}
}

// SetAdapter installs (or, passed nil, clears) the Storage Adapter this
// Router executes against while leader. Node calls this on election and
// on step-down.
func (r *Router) SetAdapter(a *storage.Adapter) { r.adapter.Store(a) }

// Timeout returns the configured follower wait deadline.
func (r *Router) Timeout() time.Duration { return r.timeout }

// Serve subscribes to the bus and processes incoming messages until ctx
// is done. Exactly one goroutine per node should run Serve.
func (r *Router) Serve(ctx context.Context) {
	var sub = r.bus.Subscribe()
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			r.dispatch(ctx, msg)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, msg bus.Message) {
	switch msg.Type {
	case bus.QueryRequest:
		if !r.isLeader.Load() {
			return // followers discard QueryRequest (spec.md §4.5)
		}
		var value, err = r.executeLocal(ctx, msg.SQL, msg.Params)
		var resp = bus.Message{Type: bus.QueryResponse, QueryID: msg.QueryID}
		if err != nil {
			resp.Err = toErrorPayload(err)
		} else {
			resp.Result = value
		}
		r.bus.Publish(resp)
	case bus.QueryResponse:
		r.mu.Lock()
		var slot, ok = r.pending[msg.QueryID]
		if ok {
			delete(r.pending, msg.QueryID)
		}
		r.mu.Unlock()
		if !ok {
			return // no matching pending entry; discard (spec.md §4.5)
		}
		var o outcome
		if msg.Err != nil {
			o.err = fromErrorPayload(msg.Err)
		} else {
			o.value = msg.Result
		}
		slot.resolve(o)
	}
}

// Query is the Query Router's entry point (spec.md §4.6 algorithm). args
// are caller-supplied (un-normalized) parameter values; nil/empty means
// no parameters were supplied.
func (r *Router) Query(ctx context.Context, sqlText string, args []any) (string, error) {
	var started = time.Now()
	var value, err = r.query(ctx, sqlText, args)
	metrics.QueryRouteDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.QueryOutcomeTotal.WithLabelValues(metrics.Fail).Inc()
	} else {
		metrics.QueryOutcomeTotal.WithLabelValues(metrics.Ok).Inc()
	}
	return value, err
}

func (r *Router) query(ctx context.Context, sqlText string, args []any) (string, error) {
	if r.isLeader.Load() {
		var params, err = sqlstmt.NormalizeParams(args)
		if err != nil {
			return "", err
		}
		return r.executeLocal(ctx, sqlText, params)
	}
	return r.queryRemote(ctx, sqlText, args)
}

func (r *Router) queryRemote(ctx context.Context, sqlText string, args []any) (string, error) {
	var params, err = sqlstmt.NormalizeParams(args)
	if err != nil {
		return "", err
	}

	var id = uuid.New().String()
	var slot = newOneShot[outcome]()

	r.mu.Lock()
	r.pending[id] = slot
	r.mu.Unlock()

	var forget = func() {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
	}

	r.bus.Publish(bus.Message{Type: bus.QueryRequest, QueryID: id, SQL: sqlText, Params: params})

	var timer = time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case o := <-slot.C():
		if o.err != nil {
			return "", o.err
		}
		return o.value, nil
	case <-timer.C:
		forget()
		return "", dberrors.Newf(dberrors.LeaderTimeout, "no leader response for query %s within %s", id, r.timeout)
	case <-ctx.Done():
		forget()
		return "", ctx.Err()
	}
}

// executeLocal runs sqlText (optionally multi-statement, per spec.md
// §4.2's trailing-semicolon gate) against the Storage Adapter and returns
// the JSON-encoded value a caller would see, per spec.md §6.
func (r *Router) executeLocal(ctx context.Context, sqlText string, params []storage.Value) (string, error) {
	var adapter = r.adapter.Load()
	if adapter == nil {
		return "", dberrors.New(dberrors.StorageUnavailable, "router has no storage adapter open")
	}

	if sqlText == WipeSentinelSQL {
		if err := adapter.Wipe(ctx); err != nil {
			return "", err
		}
		return "{}", nil
	}

	var haveParams = len(params) > 0
	var stmts, err = sqlstmt.Prepare(sqlText, haveParams)
	if err != nil {
		return "", err
	}

	if haveParams {
		// Prepare guarantees len(stmts) == 1 whenever haveParams is true;
		// multi-statement detection with params is rejected above.
		var n, verr = sqlstmt.ValidatePlaceholders(stmts[0])
		if verr != nil {
			return "", verr
		}
		if cerr := sqlstmt.CheckParamCount(n, len(params)); cerr != nil {
			return "", cerr
		}
	}

	var lastRows *storage.Result
	var lastSummary storage.Result
	for _, stmt := range stmts {
		var res, err = adapter.Execute(ctx, stmt, params)
		if err != nil {
			return "", err
		}
		if res.HasRows {
			var copy = res
			lastRows = &copy
		} else {
			lastSummary = res
		}
	}

	var final storage.Result
	if lastRows != nil {
		final = *lastRows
	} else {
		final = lastSummary
	}

	var encoded, merr = json.Marshal(final)
	if merr != nil {
		return "", dberrors.Newf(dberrors.SqlEngine, "encoding result: %v", merr)
	}
	return string(encoded), nil
}

func toErrorPayload(err error) *bus.ErrorPayload {
	if de, ok := err.(*dberrors.Error); ok {
		return &bus.ErrorPayload{Kind: string(de.Kind), Msg: de.Msg, Detail: de.Detail}
	}
	log.WithError(err).Warn("non-structured error crossing the bus; downgrading to SqlEngine")
	return &bus.ErrorPayload{Kind: string(dberrors.SqlEngine), Msg: err.Error()}
}

func fromErrorPayload(p *bus.ErrorPayload) *dberrors.Error {
	return &dberrors.Error{Kind: dberrors.Kind(p.Kind), Msg: p.Msg, Detail: p.Detail}
}
