// Package textutil provides name matching and filename sanitization helpers.
//
// Traveler names are compared with Unicode case folding so "alice" from a
// model response matches "Alice" from trip metadata. Sanitizers make archive
// stems safe to use as directory names.
package textutil
