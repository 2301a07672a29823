// Package services defines shared utilities consumed by the enrichment
// orchestrator and the remote analyzer clients.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, clip IDs, analyzer names and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (retryable, malformed, fatal) without string matching.
//
// Use these helpers when wiring new clients so retry and logging behaviour
// stays uniform across analyzers.
package services
