// Package providers defines the upstream LLM provider abstraction and
// the shared HTTP machinery behind it.
//
// # Overview
//
// A Provider turns a provider-agnostic CompletionRequest into a
// Completion by calling a third-party LLM API. The HTTPClient base
// supplies connection pooling, timeout handling, exponential-backoff
// retries for transient failures, and health tracking; concrete
// adapters (the openai subpackage) only translate request and response
// shapes.
//
// # Error Taxonomy
//
// Failures surface as typed errors: AuthError (401/403, never retried),
// RateLimitError (429 with parsed Retry-After, never retried —
// the caller decides), TimeoutError, ParseError, and ProviderError for
// everything else. 5xx and network errors are retried with backoff up
// to the configured attempt budget.
package providers
