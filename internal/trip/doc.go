// Package trip holds the trip data model and the archive/manifest plumbing
// around it: zip extraction, metadata parsing (current and legacy layouts)
// and rendering of the enriched manifest.
//
// Documents keep the raw JSON of the manifest so fields this package does not
// model pass through to the output unchanged.
package trip
