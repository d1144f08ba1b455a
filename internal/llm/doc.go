// Package llm wraps the chat-completions inference endpoint used by the
// tagging cascade.
//
// Calls are single-shot: a timeout or transport failure degrades the call to
// an error and the cascade falls through to the next model instead of
// retrying the same one. A shared rate limiter throttles request volume
// across workers and a circuit breaker sheds load when the endpoint is
// failing hard. Model output parsing tolerates code fences and surrounding
// prose via a two-stage extract-then-decode.
package llm
