// Package llm provides an OpenRouter chat client used as the Scene Analyzer
// transport and for story-beat summaries.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteAudioJSON: send a prompt, optional voice references and the
// clip as inline input_audio parts, receive a JSON payload.
// Client.Complete: plain text completion.
// Client.HealthCheck: verify API key and model availability.
// DecodeLLMJSON: decode model output, tolerating code fences and prose.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty content and network
// timeouts with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default). Callers that own retry pass WithRetryMaxAttempts(1); errors then
// carry services.ErrTransient and the Retry-After hint so the caller can
// schedule the next attempt. Context cancellation aborts retries immediately.
package llm
