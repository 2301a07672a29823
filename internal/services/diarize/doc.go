// Package diarize talks to the OpenAI diarizing transcription endpoint
// (gpt-4o-transcribe-diarize). Known speaker names and reference clips are
// sent as repeated known_speaker_names[] / known_speaker_references[] form
// fields so segments come back labelled with traveler names.
package diarize
