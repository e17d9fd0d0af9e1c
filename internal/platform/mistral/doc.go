// Package mistral is the HTTP adapter for Mistral's chat completion, file and
// batch job endpoints. Client implements generation.Generator for the
// synchronous path and batch.Provider for the asynchronous one, so both
// dispatch strategies talk to the service through the same client and the
// same credentials.
//
// Transient failures (transport errors, 429 and 5xx responses) are retried
// with exponential backoff and jitter on idempotent calls and on chat
// completions. Provider error bodies are redacted before they reach an error
// value.
package mistral
