// Package whisper is the non-diarizing speech backend, built on go-openai's
// CreateTranscription with verbose_json segments.
package whisper
