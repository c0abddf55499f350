package core

import "context"

// Bus is the publish/subscribe transport agents use to exchange messages
// asynchronously, decoupled from their direct call graphs.
//
// Contract:
//   - Send publishes at-least-once to the recipient's inbox; duplicate
//     deliveries of the same message id are safe because inboxes suppress ids
//     they have already accepted.
//   - Receive pulls up to max pending messages addressed to agentID,
//     removing them from the inbox (at-most-once consumption per message),
//     oldest first. It never blocks waiting for new traffic; an empty inbox
//     yields an empty slice.
//   - Per-sender delivery order is preserved; no global ordering is
//     guaranteed.
//   - Transport or serialization failures are wrapped in CommunicationError
//     with the original cause preserved.
//   - Close releases transport resources; subsequent operations fail with
//     ErrBusClosed (wrapped).
type Bus interface {
	Send(ctx context.Context, msg Message) error
	Receive(ctx context.Context, agentID string, max int) ([]Message, error)
	Close() error
}
