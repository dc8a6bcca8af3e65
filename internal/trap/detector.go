package trap

import (
	"math"
	"sort"

	"github.com/petersawicki/seo-log-analyzer/internal/model"
)

// BaselinePolicy derives the expected crawl count from the site's
// crawl-count distribution. The precise formula is a strategy, not a
// constant of the detector: sites with long-tail archives want a
// different baseline than small brochure sites.
type BaselinePolicy interface {
	// Baseline computes the expected per-pattern crawl count from the
	// observed distribution. The input slice is sorted ascending and
	// non-empty.
	Baseline(sorted []int64) float64
}

// MedianPolicy uses the distribution's median, the default. It is
// robust against the very outliers the detector is hunting.
type MedianPolicy struct{}

// Baseline implements BaselinePolicy.
func (MedianPolicy) Baseline(sorted []int64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2
}

// PercentilePolicy uses a nearest-rank percentile of the distribution,
// for sites where the median sits too low (many single-hit URLs).
type PercentilePolicy struct {
	// Percentile in (0, 100].
	Percentile float64
}

// Baseline implements BaselinePolicy.
func (p PercentilePolicy) Baseline(sorted []int64) float64 {
	rank := int(math.Ceil(p.Percentile / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return float64(sorted[rank-1])
}

const (
	// DefaultMultiplier flags a pattern when its crawl count exceeds
	// the baseline by more than this factor.
	DefaultMultiplier = 5.0

	// DefaultExampleLimit caps the raw URLs retained per finding.
	DefaultExampleLimit = 3
)

// Detector finds crawl traps in per-URL crawl counts.
type Detector struct {
	policy       BaselinePolicy
	multiplier   float64
	rules        []Rule
	exampleLimit int
}

// Option configures a Detector.
type Option func(*Detector)

// WithBaselinePolicy replaces the default median policy.
func WithBaselinePolicy(p BaselinePolicy) Option {
	return func(d *Detector) {
		if p != nil {
			d.policy = p
		}
	}
}

// WithMultiplier overrides the flagging threshold factor.
func WithMultiplier(m float64) Option {
	return func(d *Detector) {
		if m > 0 {
			d.multiplier = m
		}
	}
}

// WithRules sets the custom normalization rules applied before the
// built-in numeric-segment collapsing.
func WithRules(rules []Rule) Option {
	return func(d *Detector) {
		d.rules = rules
	}
}

// WithExampleLimit overrides how many raw URLs each finding retains.
func WithExampleLimit(n int) Option {
	return func(d *Detector) {
		if n >= 0 {
			d.exampleLimit = n
		}
	}
}

// New creates a Detector with the median baseline policy.
func New(opts ...Option) *Detector {
	d := &Detector{
		policy:       MedianPolicy{},
		multiplier:   DefaultMultiplier,
		exampleLimit: DefaultExampleLimit,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Detect normalizes the counted URLs into patterns, derives the
// baseline from the pattern-count distribution, and flags every
// pattern whose count exceeds baseline × multiplier. Severity is HIGH
// once the count reaches twice the flagging threshold, LOW below.
// Findings sort by deviation descending, pattern ascending on ties.
func (d *Detector) Detect(counts map[string]int64) []model.CrawlTrapFinding {
	if len(counts) == 0 {
		return nil
	}

	type patternStats struct {
		count    int64
		examples []string
	}
	patterns := make(map[string]*patternStats)

	// Deterministic example selection requires a stable URL order.
	urls := make([]string, 0, len(counts))
	for url := range counts {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	for _, url := range urls {
		pattern := Normalize(url, d.rules)
		stats := patterns[pattern]
		if stats == nil {
			stats = &patternStats{}
			patterns[pattern] = stats
		}
		stats.count += counts[url]
		if len(stats.examples) < d.exampleLimit {
			stats.examples = append(stats.examples, url)
		}
	}

	distribution := make([]int64, 0, len(patterns))
	for _, stats := range patterns {
		distribution = append(distribution, stats.count)
	}
	sort.Slice(distribution, func(i, j int) bool { return distribution[i] < distribution[j] })

	baseline := d.policy.Baseline(distribution)
	if baseline <= 0 {
		return nil
	}
	threshold := baseline * d.multiplier

	var findings []model.CrawlTrapFinding
	for pattern, stats := range patterns {
		if float64(stats.count) <= threshold {
			continue
		}
		severity := model.TrapSeverityLow
		if float64(stats.count) >= 2*threshold {
			severity = model.TrapSeverityHigh
		}
		findings = append(findings, model.CrawlTrapFinding{
			Pattern:     pattern,
			CrawlCount:  stats.count,
			Baseline:    baseline,
			Deviation:   float64(stats.count) / baseline,
			Severity:    severity,
			ExampleURLs: stats.examples,
		})
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Deviation != findings[j].Deviation {
			return findings[i].Deviation > findings[j].Deviation
		}
		return findings[i].Pattern < findings[j].Pattern
	})
	return findings
}
