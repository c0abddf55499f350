// Package history records task submissions and their results so callers can
// audit what a hierarchy did after the fact: which tasks ran, where they
// originated and how they settled. The in-memory store is bounded and
// volatile; it suits tests, examples and short-lived processes.
package history
