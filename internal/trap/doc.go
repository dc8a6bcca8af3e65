// Package trap detects crawl traps: URL patterns that absorb a
// disproportionate share of crawl budget relative to the rest of the
// site, such as faceted navigation, calendar pages, or session-ID
// variants.
//
// Detection is a whole-run batch computation over the final per-URL
// crawl counts. It is deterministic: the same counts and policy always
// produce the same findings, in the same order.
package trap
