// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing tasks and agent configurations. These
// helpers are intentionally minimal and are not intended for production
// usage.
package testutil
