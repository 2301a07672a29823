// Package main hosts the Chronicle CLI.
//
// The Cobra command tree loads configuration, sets up logging and hands trip
// archives to the enrichment pipeline: `process` enriches one archive,
// `watch` enriches archives dropped into the inbox, `status` reports
// checkpointed runs and preflight results, and `config` scaffolds and
// validates the configuration file. The enrichment logic itself lives in the
// internal packages.
package main
