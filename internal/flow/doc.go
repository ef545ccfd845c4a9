// Package flow reads recorded interactive flows and turns their steps into
// plain action descriptions.
//
// A flow is a JSON document holding metadata, an ordered list of steps
// (CHAPTER, IMAGE and VIDEO) and the raw input events captured while it was
// recorded. IMAGE steps carry the click that led to them; VIDEO steps carry
// a thumbnail and the fraction of the recording they cover, and are
// described by a caller-supplied callback (see [Enrich]).
package flow
