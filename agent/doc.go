// Package agent contains the task execution runtime and the delegation
// hierarchy built on top of it. The package focuses on three concerns:
//
//  1. Handler dispatch (Registry): a sealed task-type -> handler table built
//     once at agent construction, replacing per-type branching.
//  2. The task lifecycle (Runtime): validation, bounded-concurrency
//     admission, execution under a deadline, typed failure wrapping and
//     graceful drain on shutdown.
//  3. Coordination patterns (Manager, Coordinator): strict one-tier-down
//     delegation with a join barrier and required/optional partial-failure
//     aggregation.
//
// Design principles:
//   - Minimal hidden global state: subordinates, transports and providers are
//     injected through constructors, never registered after the fact
//   - Composability: Runtime satisfies Delegate, so hierarchies nest without
//     special casing
//   - Observability: structured logging hooks at admission, completion and
//     delegation rounds
//
// Execution model:
//   - Submit is synchronous from the caller's view; the handler runs on its
//     own goroutine so a deadline can cancel a hung operation
//   - Exactly one Result is produced per Submit, and a task id never remains
//     in the in-flight set after its Result is returned
//   - A failing delegate never aborts its siblings; the aggregator decides
//     overall success by required/optional policy
package agent
