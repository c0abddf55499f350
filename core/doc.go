// Package core provides the foundational domain types and interfaces used by
// GrowMesh. It defines the core abstractions for:
//
//   - Tasks (immutable units of requested work with a type tag and parameters)
//   - Results (the immutable outcome of a single task execution attempt)
//   - Messages (addressed, idempotent units exchanged over the message bus)
//   - Roles (the fixed coordinator / manager / specialist tier set)
//   - Config (validated, immutable per-agent settings)
//   - Error taxonomy (validation, execution, communication, timeout)
//   - Pluggable Bus and Cache contracts implemented in sibling packages
//
// The package intentionally keeps implementation concerns (transports, cache
// backends, concrete agents) out of scope, exposing small interfaces to
// enable custom backends and extensions. All exported identifiers include
// concise documentation to aid discoverability and external consumption.
package core
