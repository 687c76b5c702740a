// Package geometry holds the integer geometry used to resolve image
// requests: exact aspect ratios, width/height pairs and crop rectangles.
//
// All types are immutable values. Every operation returns a new value and
// is safe for concurrent use without synchronization.
package geometry
