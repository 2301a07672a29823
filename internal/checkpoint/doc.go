// Package checkpoint persists per-clip enrichment progress in SQLite so an
// interrupted batch can resume without re-analyzing finished clips.
//
// A run groups the results for one input archive. Begin either resumes the
// active run for that input or starts a new one; Append upserts one clip's
// result; Archive marks the run finished. Archived runs stay in the database
// for the status command but are never resumed.
package checkpoint
