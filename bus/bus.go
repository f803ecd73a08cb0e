// Package bus is the Inter-Context Bus (spec.md §4.5 / §6): a named,
// best-effort, unordered, non-durable broadcast channel carrying
// NewLeader / QueryRequest / QueryResponse messages between nodes sharing
// an Origin.
//
// Subscribers register a buffered channel and Publish fans out
// non-blockingly, dropping delivery to any subscriber that is not keeping
// up rather than letting one slow reader stall the bus for everyone else.
package bus

import (
	"sync"

	"go.sqlitecoord.dev/core/metrics"
	"go.sqlitecoord.dev/core/storage"
)

// MessageType discriminates the three wire-contract variants (spec.md §6).
type MessageType string

const (
	NewLeader     MessageType = "NewLeader"
	QueryRequest  MessageType = "QueryRequest"
	QueryResponse MessageType = "QueryResponse"
)

// Message is the tagged union spec.md §6 defines. Field names (as JSON
// tags) match the wire contract exactly; only the fields relevant to Type
// are populated.
type Message struct {
	Type MessageType `json:"type"`

	// NewLeader
	LeaderID string `json:"leader_id,omitempty"`

	// QueryRequest
	QueryID string          `json:"query_id,omitempty"`
	SQL     string          `json:"sql,omitempty"`
	Params  []storage.Value `json:"params,omitempty"`

	// QueryResponse, exactly one of Result/Err is set.
	Result string        `json:"result,omitempty"`
	Err    *ErrorPayload `json:"error,omitempty"`
}

// ErrorPayload is the wire-serializable form of a dberrors.Error, carried
// inside a QueryResponse so a follower cannot distinguish a local vs.
// remote result by inspection alone (spec.md §4.5).
type ErrorPayload struct {
	Kind   string         `json:"kind"`
	Msg    string         `json:"msg"`
	Detail map[string]any `json:"detail,omitempty"`
}

// subscriberBuf is the per-subscriber delivery channel depth. A
// subscriber that falls this far behind misses messages, acceptable
// under the "best-effort, not durable" delivery discipline spec.md §4.5
// specifies.
const subscriberBuf = 64

// Bus is a named broadcast channel. The zero value is not usable;
// construct with New.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Message
	next int
}

// New returns an empty Bus. spec.md's channel_name knob identifies a bus
// to operators, not to the wire protocol itself; a single process-wide Bus
// value already scopes delivery to its subscribers.
func New() *Bus {
	return &Bus{subs: make(map[int]chan Message)}
}

// Subscription is a live registration on the bus. Call Unsubscribe when
// the subscriber (typically a node.Node) shuts down.
type Subscription struct {
	id int
	ch chan Message
	b  *Bus
}

// C returns the channel on which messages arrive.
func (s *Subscription) C() <-chan Message { return s.ch }

// Unsubscribe removes the subscription. Idempotent.
func (s *Subscription) Unsubscribe() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if _, ok := s.b.subs[s.id]; ok {
		delete(s.b.subs, s.id)
		close(s.ch)
	}
}

// Subscribe registers a new subscriber and returns its Subscription.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	var id = b.next
	b.next++
	var ch = make(chan Message, subscriberBuf)
	b.subs[id] = ch
	return &Subscription{id: id, ch: ch, b: b}
}

// Publish broadcasts msg to every current subscriber. Delivery is
// non-blocking per subscriber: a subscriber whose buffer is full simply
// does not receive this message, rather than stalling the publisher.
func (b *Bus) Publish(msg Message) {
	metrics.BusPublishTotal.Inc()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}
