// Package voiceref loads traveler voice reference samples once per batch so
// every clip's diarization call can reuse them.
package voiceref
