package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/growmesh/growmesh/core"
	"github.com/growmesh/growmesh/logging"
)

// KafkaBus is a core.Bus implementation mapping each recipient's inbox to a
// dedicated Kafka topic. It suits deployments where agents run as separate
// services and inbox durability across restarts matters more than the low
// latency of the Redis backend.
//
// Consumption uses one consumer group per agent so each message is delivered
// to exactly one Receive caller. Duplicate suppression is process-local.
type KafkaBus struct {
	writer      *kafka.Writer
	brokers     []string
	topicPrefix string
	pollWindow  time.Duration
	logger      logging.Logger

	mu      sync.Mutex
	readers map[string]*kafka.Reader
	seen    map[string]map[string]struct{}
	closed  bool
}

// KafkaOptions holds overrides for NewKafkaBus.
type KafkaOptions struct {
	// TopicPrefix namespaces inbox topics. Defaults to "growmesh.inbox.".
	TopicPrefix string
	// PollWindow bounds how long one Receive call waits for the broker when
	// fewer than max messages are pending. Defaults to 250ms.
	PollWindow time.Duration
	// Logger receives traffic records. Defaults to NoOpLogger.
	Logger logging.Logger
}

// NewKafkaBus constructs a bus over the given brokers. Topics are created on
// demand by the cluster (auto-creation must be enabled broker-side or topics
// provisioned up front).
func NewKafkaBus(brokers []string, optFns ...func(o *KafkaOptions)) (*KafkaBus, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("bus: no kafka brokers configured")
	}

	opts := KafkaOptions{TopicPrefix: "growmesh.inbox.", PollWindow: 250 * time.Millisecond, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	return &KafkaBus{
		writer:      writer,
		brokers:     brokers,
		topicPrefix: opts.TopicPrefix,
		pollWindow:  opts.PollWindow,
		logger:      opts.Logger,
		readers:     make(map[string]*kafka.Reader),
		seen:        make(map[string]map[string]struct{}),
	}, nil
}

// Send implements core.Bus, publishing to the recipient's inbox topic.
func (b *KafkaBus) Send(ctx context.Context, msg core.Message) error {
	if msg.To == "" {
		return core.NewCommunicationError(msg.From, "send failed", fmt.Errorf("message has no recipient"))
	}

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return core.NewCommunicationError(msg.From, "send failed", core.ErrBusClosed)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return core.NewCommunicationError(msg.From, "message serialization failed", err)
	}

	err = b.writer.WriteMessages(ctx, kafka.Message{
		Topic: b.topicFor(msg.To),
		Key:   []byte(msg.From),
		Value: data,
	})
	if err != nil {
		return core.NewCommunicationError(msg.From, "publish to inbox failed", err)
	}
	return nil
}

// Receive implements core.Bus. It drains up to max messages from the agent's
// inbox topic, waiting at most the configured poll window when the topic has
// fewer pending messages.
func (b *KafkaBus) Receive(ctx context.Context, agentID string, max int) ([]core.Message, error) {
	if max <= 0 {
		return nil, nil
	}

	reader, seen, err := b.readerFor(agentID)
	if err != nil {
		return nil, err
	}

	deadline, cancel := context.WithTimeout(ctx, b.pollWindow)
	defer cancel()

	var msgs []core.Message
	for len(msgs) < max {
		km, err := reader.ReadMessage(deadline)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				break
			}
			return msgs, core.NewCommunicationError(agentID, "receive failed", err)
		}

		var msg core.Message
		if err := json.Unmarshal(km.Value, &msg); err != nil {
			b.logger.Warn("undecodable message dropped", "to", agentID, "error", err)
			continue
		}

		b.mu.Lock()
		if _, dup := seen[msg.ID]; dup {
			b.mu.Unlock()
			b.logger.Debug("duplicate message ignored", "message_id", msg.ID, "to", agentID)
			continue
		}
		seen[msg.ID] = struct{}{}
		b.mu.Unlock()

		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Close releases the writer and all per-agent readers. Idempotent.
func (b *KafkaBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if err := b.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close writer: %w", err))
	}
	for id, r := range b.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close reader %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (b *KafkaBus) readerFor(agentID string) (*kafka.Reader, map[string]struct{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, nil, core.NewCommunicationError(agentID, "receive failed", core.ErrBusClosed)
	}

	if r, ok := b.readers[agentID]; ok {
		return r, b.seen[agentID], nil
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  b.brokers,
		GroupID:  "growmesh-" + agentID,
		Topic:    b.topicFor(agentID),
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	b.readers[agentID] = r
	b.seen[agentID] = make(map[string]struct{})
	return r, b.seen[agentID], nil
}

// topicFor maps a recipient id to a legal Kafka topic name.
func (b *KafkaBus) topicFor(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, name)
	return b.topicPrefix + safe
}
