// Package preflight provides readiness checks for the directories and remote
// analyzers chronicle depends on.
//
// These checks run in two contexts:
//   - "chronicle process" and "chronicle watch" call RunLocal before touching
//     an archive, so a missing or read-only state directory fails fast
//     instead of after the first clip.
//   - "chronicle status" calls RunAll, which also pings the speech and scene
//     APIs for the analyzers the configured mode enables.
package preflight
