package model

// CrawlTrapFinding flags a URL or URL pattern that absorbs a
// disproportionate share of crawl budget relative to the rest of the
// site. Findings are produced fresh per analysis run by the trap
// detector and never mutated after creation.
type CrawlTrapFinding struct {
	// Pattern is the normalized URL pattern (query stripped, numeric
	// path segments collapsed per the configured rules).
	Pattern string `json:"pattern"`

	// CrawlCount is the observed number of bot requests matching the
	// pattern.
	CrawlCount int64 `json:"crawl_count"`

	// Baseline is the expected crawl count derived from the site's
	// crawl-count distribution by the configured baseline policy.
	Baseline float64 `json:"baseline"`

	// Deviation is CrawlCount divided by Baseline: how many multiples
	// over the expected rate the pattern sits.
	Deviation float64 `json:"deviation"`

	// Severity grades the deviation relative to the flagging threshold.
	Severity TrapSeverity `json:"severity"`

	// ExampleURLs holds up to a few raw URLs that collapsed into the
	// pattern, so the reader can see what the pattern actually matches.
	ExampleURLs []string `json:"example_urls,omitempty"`
}
