package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/growmesh/growmesh/core"
	"github.com/growmesh/growmesh/logging"
)

// seenTTL bounds how long message ids are remembered for duplicate
// suppression. Redeliveries arriving later than this are treated as new,
// which is acceptable for at-least-once transports that redeliver promptly.
const seenTTL = time.Hour

// RedisBus is a core.Bus implementation storing each recipient's inbox as a
// Redis list, allowing agents in separate processes to exchange messages.
// Messages are JSON-encoded; inboxes are trimmed to a fixed capacity with
// the oldest entries evicted first.
type RedisBus struct {
	client   *redis.Client
	prefix   string
	capacity int
	logger   logging.Logger
}

// RedisBusOptions holds overrides for NewRedisBus.
type RedisBusOptions struct {
	// Password authenticates against protected instances.
	Password string
	// DB selects the logical Redis database.
	DB int
	// KeyPrefix namespaces inbox keys. Defaults to "growmesh:inbox:".
	KeyPrefix string
	// InboxCapacity bounds each inbox list. Defaults to DefaultInboxCapacity.
	InboxCapacity int
	// Logger receives eviction and traffic records. Defaults to NoOpLogger.
	Logger logging.Logger
}

// NewRedisBus connects to Redis at addr and verifies the connection with a
// ping before returning.
func NewRedisBus(ctx context.Context, addr string, optFns ...func(o *RedisBusOptions)) (*RedisBus, error) {
	opts := RedisBusOptions{
		KeyPrefix:     "growmesh:inbox:",
		InboxCapacity: DefaultInboxCapacity,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.InboxCapacity < 1 {
		opts.InboxCapacity = DefaultInboxCapacity
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: opts.Password, DB: opts.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("bus: redis connection to %s failed: %w", addr, err)
	}

	return &RedisBus{client: client, prefix: opts.KeyPrefix, capacity: opts.InboxCapacity, logger: opts.Logger}, nil
}

// Send implements core.Bus. The message is appended to the recipient's inbox
// list; the list is trimmed so the oldest messages beyond capacity fall off.
func (b *RedisBus) Send(ctx context.Context, msg core.Message) error {
	if msg.To == "" {
		return core.NewCommunicationError(msg.From, "send failed", fmt.Errorf("message has no recipient"))
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return core.NewCommunicationError(msg.From, "message serialization failed", err)
	}

	// Duplicate suppression: SADD returns 0 when the id was already seen.
	added, err := b.client.SAdd(ctx, b.seenKey(msg.To), msg.ID).Result()
	if err != nil {
		return core.NewCommunicationError(msg.From, "duplicate check failed", err)
	}
	if added == 0 {
		b.logger.Debug("duplicate message ignored", "message_id", msg.ID, "to", msg.To)
		return nil
	}
	_ = b.client.Expire(ctx, b.seenKey(msg.To), seenTTL).Err()

	key := b.inboxKey(msg.To)
	if err := b.client.RPush(ctx, key, data).Err(); err != nil {
		// The id is unmarked so the sender's retry of this message is not
		// mistaken for a duplicate of a delivery that never happened.
		if sremErr := b.client.SRem(ctx, b.seenKey(msg.To), msg.ID).Err(); sremErr != nil {
			b.logger.Warn("seen id rollback failed", "message_id", msg.ID, "to", msg.To, "error", sremErr)
		}
		return core.NewCommunicationError(msg.From, "publish to inbox failed", err)
	}
	if err := b.client.LTrim(ctx, key, int64(-b.capacity), -1).Err(); err != nil {
		b.logger.Warn("inbox trim failed", "to", msg.To, "error", err)
	}
	return nil
}

// Receive implements core.Bus, popping up to max messages oldest-first.
func (b *RedisBus) Receive(ctx context.Context, agentID string, max int) ([]core.Message, error) {
	if max <= 0 {
		return nil, nil
	}

	raw, err := b.client.LPopCount(ctx, b.inboxKey(agentID), max).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, core.NewCommunicationError(agentID, "receive failed", err)
	}

	msgs := make([]core.Message, 0, len(raw))
	for _, item := range raw {
		var msg core.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			b.logger.Warn("undecodable message dropped", "to", agentID, "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Close releases the underlying Redis connection.
func (b *RedisBus) Close() error { return b.client.Close() }

func (b *RedisBus) inboxKey(name string) string { return b.prefix + name }
func (b *RedisBus) seenKey(name string) string  { return b.prefix + "seen:" + name }
