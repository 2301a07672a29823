// Package analysis defines the per-clip Analysis record, the Speech and Scene
// analyzer contracts, and the adapters that turn remote service responses into
// that record.
//
// Transcript and audio event sequences are always sorted by timestamp. A
// sequence that could not be produced is nil (rendered as JSON null); a
// sequence that was produced but is empty is a non-nil empty slice.
package analysis
