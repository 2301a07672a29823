// Package enrich drives per-clip enrichment: it calls the configured Speech
// and Scene analyzers for every clip, merges their results, resolves story
// beat references and checkpoints each clip before moving on.
//
// Failures follow a three-level taxonomy. A soft failure (one analyzer call
// failed after retries) degrades that call's fields to null. A skip (clip
// audio missing, empty or unreadable) records the clip without calling any
// analyzer. A fatal failure (progress cannot be persisted) stops the batch.
// Only fatal failures and cancellation are returned from Orchestrator.Run.
package enrich
