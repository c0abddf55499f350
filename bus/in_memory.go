package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/growmesh/growmesh/core"
	"github.com/growmesh/growmesh/logging"
)

// DefaultInboxCapacity bounds each recipient's inbox when no override is
// given. On overflow the OLDEST message is evicted: undrained inboxes favor
// recent traffic, and a slow consumer loses history rather than stalling
// every sender.
const DefaultInboxCapacity = 256

// inbox is one recipient's bounded message queue plus the set of message ids
// it has already accepted (duplicate redeliveries are dropped silently).
type inbox struct {
	messages  []core.Message
	seen      map[string]struct{}
	seenFIFO  []string
	seenLimit int
}

// InMemoryBus is a process-local core.Bus implementation storing inboxes in
// a map keyed by recipient id or topic name. It is safe for concurrent
// access and best suited for tests and single-process hierarchies.
type InMemoryBus struct {
	mu       sync.Mutex
	inboxes  map[string]*inbox
	capacity int
	closed   bool
	logger   logging.Logger
}

// InMemoryOptions holds overrides for NewInMemoryBus.
type InMemoryOptions struct {
	// InboxCapacity bounds each inbox. Defaults to DefaultInboxCapacity.
	InboxCapacity int
	// Logger receives eviction and traffic records. Defaults to NoOpLogger.
	Logger logging.Logger
}

// NewInMemoryBus constructs an empty in-memory bus.
func NewInMemoryBus(optFns ...func(o *InMemoryOptions)) *InMemoryBus {
	opts := InMemoryOptions{InboxCapacity: DefaultInboxCapacity, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.InboxCapacity < 1 {
		opts.InboxCapacity = DefaultInboxCapacity
	}
	return &InMemoryBus{
		inboxes:  make(map[string]*inbox),
		capacity: opts.InboxCapacity,
		logger:   opts.Logger,
	}
}

// Send implements core.Bus. Delivery appends to the recipient's inbox;
// duplicates of an already-accepted message id are ignored.
func (b *InMemoryBus) Send(_ context.Context, msg core.Message) error {
	if msg.To == "" {
		return core.NewCommunicationError(msg.From, "send failed", fmt.Errorf("message has no recipient"))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return core.NewCommunicationError(msg.From, "send failed", core.ErrBusClosed)
	}

	ib := b.inboxOf(msg.To)
	if _, dup := ib.seen[msg.ID]; dup {
		b.logger.Debug("duplicate message ignored", "message_id", msg.ID, "to", msg.To)
		return nil
	}
	ib.accept(msg)

	if len(ib.messages) > b.capacity {
		evicted := ib.messages[0]
		ib.messages = ib.messages[1:]
		b.logger.Warn("inbox overflow, oldest message evicted",
			"to", msg.To, "evicted_id", evicted.ID, "capacity", b.capacity)
	}
	return nil
}

// Receive implements core.Bus, returning up to max pending messages for
// agentID oldest-first and removing them from the inbox.
func (b *InMemoryBus) Receive(_ context.Context, agentID string, max int) ([]core.Message, error) {
	if max <= 0 {
		return nil, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, core.NewCommunicationError(agentID, "receive failed", core.ErrBusClosed)
	}

	ib, ok := b.inboxes[agentID]
	if !ok || len(ib.messages) == 0 {
		return nil, nil
	}

	n := max
	if n > len(ib.messages) {
		n = len(ib.messages)
	}
	out := make([]core.Message, n)
	copy(out, ib.messages[:n])
	ib.messages = append(ib.messages[:0], ib.messages[n:]...)
	return out, nil
}

// Pending returns the number of undelivered messages for agentID.
func (b *InMemoryBus) Pending(agentID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ib, ok := b.inboxes[agentID]; ok {
		return len(ib.messages)
	}
	return 0
}

// Close marks the bus closed. Subsequent sends and receives fail with a
// CommunicationError wrapping ErrBusClosed. Idempotent.
func (b *InMemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *InMemoryBus) inboxOf(name string) *inbox {
	ib, ok := b.inboxes[name]
	if !ok {
		ib = &inbox{seen: make(map[string]struct{}), seenLimit: 4 * b.capacity}
		b.inboxes[name] = ib
	}
	return ib
}

// accept records the message and its id. The seen set is bounded at four
// times the configured inbox capacity, so an id is always remembered for at
// least as long as its message is queued; the oldest ids are forgotten first.
func (ib *inbox) accept(msg core.Message) {
	ib.messages = append(ib.messages, msg)
	ib.seen[msg.ID] = struct{}{}
	ib.seenFIFO = append(ib.seenFIFO, msg.ID)
	if len(ib.seenFIFO) > ib.seenLimit {
		delete(ib.seen, ib.seenFIFO[0])
		ib.seenFIFO = ib.seenFIFO[1:]
	}
}
