// Package cache houses concrete implementations of the core.Cache contract.
// The interface itself (and the Lookup tags) live in the core package to
// centralize domain contracts; keeping only implementations here prevents
// higher level packages (agents, handlers) from depending on concrete
// backends.
//
// Two backends are provided: InMemoryCache for process-local use and
// RedisCache for sharing entries across agents or processes. Both apply the
// same discipline: caller-supplied per-category TTLs, single-flight fetches
// per key, and stale-on-failure degradation so a rate-limited upstream
// briefly serves yesterday's numbers instead of an error.
package cache
