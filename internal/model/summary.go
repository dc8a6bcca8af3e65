package model

import "time"

// AnalysisSummary is the read-only output of one analysis run: the
// aggregation engine's derived views, the crawl-trap findings, and the
// parse diagnostics. It is the complete boundary value consumed by the
// report writers and the export formats; everything in it serializes
// losslessly (enums as names, instants as RFC 3339 with offset).
type AnalysisSummary struct {
	// Source names the analyzed line source, typically a file path or
	// "-" for stdin.
	Source string `json:"source"`

	// AnalyzedAt is when the run finished.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// === Parse diagnostics ===

	// TotalLines is the number of non-empty lines the source yielded.
	TotalLines int64 `json:"total_lines"`

	// RecordCount is the number of lines that parsed into records.
	// TotalLines == RecordCount + ParseFailureCount always holds.
	RecordCount int64 `json:"record_count"`

	// ParseFailureCount is the number of rejected lines.
	ParseFailureCount int64 `json:"parse_failure_count"`

	// FailuresByReason breaks the rejected lines down by reason.
	FailuresByReason map[FailureReason]int64 `json:"failures_by_reason,omitempty"`

	// ParseFailures holds per-line diagnostics, capped by the stream
	// builder so a badly mangled source cannot exhaust memory.
	ParseFailures []ParseFailure `json:"parse_failures,omitempty"`

	// FirstTimestamp and LastTimestamp are the earliest and latest
	// record timestamps observed, independent of line order. Nil when
	// the source yielded no valid records.
	FirstTimestamp *time.Time `json:"first_timestamp,omitempty"`
	LastTimestamp  *time.Time `json:"last_timestamp,omitempty"`

	// SourceExhausted is true when the source yielded zero valid
	// records. The summary is still well formed; the flag signals that
	// the run's results are not meaningful.
	SourceExhausted bool `json:"source_exhausted"`

	// === Crawl budget ===

	// TotalRequests is the number of parsed records.
	TotalRequests int64 `json:"total_requests"`

	// BotRequests counts records attributed to a bot family, including
	// suspected fakes.
	BotRequests int64 `json:"bot_requests"`

	// BotSharePercent is BotRequests / TotalRequests × 100.
	BotSharePercent float64 `json:"bot_share_percent"`

	// TotalBytes is the sum of response bytes across all records.
	TotalBytes int64 `json:"total_bytes"`

	// Families is the per-family budget breakdown, sorted by request
	// count descending.
	Families []FamilyBudget `json:"families,omitempty"`

	// TopURLs lists the most crawled URLs, sorted by count descending,
	// truncated to the configured limit.
	TopURLs []URLActivity `json:"top_urls,omitempty"`

	// SlowPages lists URLs whose mean response time exceeds the
	// configured threshold. Empty when the source format carries no
	// response times.
	SlowPages []SlowPage `json:"slow_pages,omitempty"`

	// ErrorPages lists URLs that bots hit and that answered 4xx/5xx,
	// sorted by error count descending.
	ErrorPages []ErrorPage `json:"error_pages,omitempty"`

	// Hourly is the per-(date, hour) activity histogram in bucket
	// order. Buckets use the record's own declared offset.
	Hourly []HourActivity `json:"hourly,omitempty"`

	// Googlebot is the desktop/mobile crawl split for records whose
	// family is GOOGLEBOT.
	Googlebot GooglebotSplit `json:"googlebot"`

	// TrapFindings holds the crawl-trap detector output, sorted by
	// deviation descending.
	TrapFindings []CrawlTrapFinding `json:"trap_findings,omitempty"`
}

// FamilyBudget is the crawl-budget share of one agent family.
type FamilyBudget struct {
	// Family is the agent family.
	Family BotFamily `json:"family"`

	// Requests is the total request count for the family.
	Requests int64 `json:"requests"`

	// Bytes is the total response bytes served to the family.
	Bytes int64 `json:"bytes"`

	// Errors is the number of 4xx/5xx responses served to the family.
	Errors int64 `json:"errors"`

	// ErrorRatePercent is Errors / Requests × 100.
	ErrorRatePercent float64 `json:"error_rate_percent"`

	// SharePercent is the family's share of all requests × 100.
	SharePercent float64 `json:"share_percent"`

	// StatusClasses breaks the family's responses down by status class.
	StatusClasses StatusClassCounts `json:"status_classes"`
}

// StatusClassCounts groups response counts by HTTP status class.
type StatusClassCounts struct {
	Success     int64 `json:"2xx"`
	Redirect    int64 `json:"3xx"`
	ClientError int64 `json:"4xx"`
	ServerError int64 `json:"5xx"`

	// Other counts 1xx and out-of-range codes.
	Other int64 `json:"other,omitempty"`
}

// Add folds one status code into the counts.
func (s *StatusClassCounts) Add(status int) {
	switch {
	case status >= 200 && status < 300:
		s.Success++
	case status >= 300 && status < 400:
		s.Redirect++
	case status >= 400 && status < 500:
		s.ClientError++
	case status >= 500 && status < 600:
		s.ServerError++
	default:
		s.Other++
	}
}

// Merge combines another set of counts into s.
func (s *StatusClassCounts) Merge(other StatusClassCounts) {
	s.Success += other.Success
	s.Redirect += other.Redirect
	s.ClientError += other.ClientError
	s.ServerError += other.ServerError
	s.Other += other.Other
}

// URLActivity is the crawl activity observed for one URL path.
type URLActivity struct {
	// URL is the request path (query string stripped).
	URL string `json:"url"`

	// Count is the total request count.
	Count int64 `json:"count"`

	// BotCount is the subset of Count issued by bot families.
	BotCount int64 `json:"bot_count"`

	// BotSharePercent is BotCount / Count × 100.
	BotSharePercent float64 `json:"bot_share_percent"`

	// StatusCounts maps status code to request count.
	StatusCounts map[int]int64 `json:"status_counts,omitempty"`

	// HasResponseTime reports whether the response-time statistics
	// below are meaningful for this URL.
	HasResponseTime bool `json:"has_response_time,omitempty"`

	// MeanResponseMs, P95ResponseMs and MaxResponseMs are response-time
	// statistics in milliseconds. P95 is approximate (histogram sketch).
	MeanResponseMs float64 `json:"mean_response_ms,omitempty"`
	P95ResponseMs  float64 `json:"p95_response_ms,omitempty"`
	MaxResponseMs  float64 `json:"max_response_ms,omitempty"`
}

// SlowPage is a URL whose response time exceeds the slow-page
// threshold.
type SlowPage struct {
	URL            string  `json:"url"`
	Count          int64   `json:"count"`
	MeanResponseMs float64 `json:"mean_response_ms"`
	P95ResponseMs  float64 `json:"p95_response_ms"`
	MaxResponseMs  float64 `json:"max_response_ms"`
}

// ErrorPage is a URL that served errors to bots.
type ErrorPage struct {
	// URL is the request path.
	URL string `json:"url"`

	// ErrorCount is the number of 4xx/5xx responses.
	ErrorCount int64 `json:"error_count"`

	// StatusCounts maps each error status code to its count.
	StatusCounts map[int]int64 `json:"status_counts,omitempty"`
}

// HourActivity is one (date, hour) bucket of the activity histogram.
type HourActivity struct {
	// Bucket is the bucket key, "2006-01-02 15" in the record's own
	// declared offset. Keys sort chronologically within one offset.
	Bucket string `json:"bucket"`

	// Total is the total request count in the bucket.
	Total int64 `json:"total"`

	// ByFamily breaks the bucket down by agent family.
	ByFamily map[BotFamily]int64 `json:"by_family,omitempty"`
}

// GooglebotSplit is the desktop/mobile breakdown of Googlebot traffic.
// Unspecified is tracked separately and never folded into either side.
type GooglebotSplit struct {
	Desktop     int64 `json:"desktop"`
	Mobile      int64 `json:"mobile"`
	Unspecified int64 `json:"unspecified"`
}

// Total returns the total Googlebot request count.
func (g GooglebotSplit) Total() int64 {
	return g.Desktop + g.Mobile + g.Unspecified
}
