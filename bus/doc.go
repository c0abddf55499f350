// Package bus houses concrete implementations of the core.Bus contract.
// The interface itself (and the Message type) live in the core package to
// centralize domain contracts; keeping only implementations here prevents
// higher level packages (agents, handlers) from depending on a concrete
// transport.
//
// Three backends are provided:
//
//   - InMemoryBus: process-local bounded inboxes, suited to tests and
//     single-process deployments.
//   - RedisBus: inbox lists on a shared Redis instance.
//   - KafkaBus: one topic per agent inbox on a Kafka cluster.
//
// All backends share the same semantics: at-least-once publish with
// idempotent message ids, at-most-once consumption per message, per-sender
// ordering, and a bounded inbox that evicts the oldest message on overflow.
package bus
