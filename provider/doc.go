// Package provider defines the LLM provider contract consumed by agent
// handlers, plus a mock implementation for tests and examples. Vendor
// adapters (Anthropic, OpenAI) live in sub-packages so applications only
// link the SDKs they use.
//
// Providers fail with *ProviderError; agent runtimes re-wrap those into the
// core taxonomy before they reach a caller, so no SDK error type ever
// crosses an agent boundary raw.
package provider
