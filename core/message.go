package core

import "time"

// MessageKind categorizes bus traffic so receivers can route without
// inspecting payloads.
type MessageKind string

const (
	// KindRequest asks the recipient to perform work.
	KindRequest MessageKind = "request"
	// KindNotification is informational; no response is expected.
	KindNotification MessageKind = "notification"
	// KindResult carries the outcome of previously requested work.
	KindResult MessageKind = "result"
)

// Message is the addressed unit exchanged between agents over the bus.
// After emission it should be treated as immutable. The ID is the
// idempotency key: the bus publishes at-least-once, and inboxes ignore
// redeliveries of an id they have already accepted.
//
// To names either a concrete agent id or a shared topic. From the sender's
// perspective delivery is fire-and-forget: the bus guarantees the message
// reaches the recipient's inbox, not that a response arrives.
type Message struct {
	ID        string         `json:"id"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Kind      MessageKind    `json:"kind"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewMessage creates a message of the given kind with a generated id and UTC
// timestamp.
func NewMessage(from, to string, kind MessageKind, payload map[string]any) Message {
	return Message{
		ID:        NewID(),
		From:      from,
		To:        to,
		Kind:      kind,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// NewRequestMessage creates a request message.
func NewRequestMessage(from, to string, payload map[string]any) Message {
	return NewMessage(from, to, KindRequest, payload)
}

// NewNotificationMessage creates a notification message.
func NewNotificationMessage(from, to string, payload map[string]any) Message {
	return NewMessage(from, to, KindNotification, payload)
}

// NewResultMessage creates a result message referencing an earlier task.
func NewResultMessage(from, to, taskID string, payload map[string]any) Message {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["task_id"] = taskID
	return NewMessage(from, to, KindResult, payload)
}
