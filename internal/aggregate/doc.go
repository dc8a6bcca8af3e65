// Package aggregate maintains the running statistics of an analysis
// run: per-URL crawl counts, per-status-code counts, hourly activity
// histograms, per-family budget shares, and response-time
// distributions.
//
// The fold is associative and commutative: counts sum, running
// mean/variance use a mergeable online formula, and hourly buckets
// merge by key union. Independent workers can therefore fold disjoint
// chunks of a source into separate States and combine them with Merge
// before Finalize.
package aggregate
