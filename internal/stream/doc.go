// Package stream turns a raw line source into a single-pass sequence
// of enriched records. It drives the line parser and the agent
// classifier synchronously per line, collects parse failures as data
// instead of raising them, and produces a terminal summary once the
// source is exhausted.
//
// The sequence is forward-only and not restartable, consistent with
// one-shot log processing. Timestamps are not assumed sorted; first and
// last observed instants are tracked as a running min and max.
package stream
