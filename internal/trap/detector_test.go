package trap

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/petersawicki/seo-log-analyzer/internal/model"
)

// TestDetectSingleOutlier tests the canonical trap shape: one URL
// drawing three orders of magnitude more crawls than everything else.
func TestDetectSingleOutlier(t *testing.T) {
	t.Parallel()

	counts := map[string]int64{"/page1": 1000}
	for i := 2; i <= 51; i++ {
		counts[fmt.Sprintf("/page%d", i)] = 5
	}

	findings := New(WithMultiplier(5)).Detect(counts)

	if len(findings) != 1 {
		t.Fatalf("findings = %d, expected exactly 1", len(findings))
	}
	finding := findings[0]
	if finding.Pattern != "/page1" {
		t.Errorf("Pattern = %q, expected /page1", finding.Pattern)
	}
	if finding.CrawlCount != 1000 {
		t.Errorf("CrawlCount = %d, expected 1000", finding.CrawlCount)
	}
	if finding.Baseline != 5 {
		t.Errorf("Baseline = %v, expected median 5", finding.Baseline)
	}
	if finding.Deviation != 200 {
		t.Errorf("Deviation = %v, expected 200", finding.Deviation)
	}
	if finding.Severity != model.TrapSeverityHigh {
		t.Errorf("Severity = %v, expected HIGH", finding.Severity)
	}
}

// TestDetectSeverityTiers tests the LOW/HIGH boundary at twice the
// flagging threshold.
func TestDetectSeverityTiers(t *testing.T) {
	t.Parallel()

	// Median is 10, multiplier 5, so flagging threshold is 50 and the
	// HIGH boundary is 100.
	counts := map[string]int64{
		"/low-trap":  60,
		"/high-trap": 100,
		"/a":         10, "/b": 10, "/c": 10, "/d": 10, "/e": 10,
		"/f": 10, "/g": 10, "/h": 10, "/i": 10, "/j": 10, "/k": 10,
	}

	findings := New(WithMultiplier(5)).Detect(counts)
	if len(findings) != 2 {
		t.Fatalf("findings = %d, expected 2", len(findings))
	}

	// Sorted by deviation descending.
	if findings[0].Pattern != "/high-trap" || findings[0].Severity != model.TrapSeverityHigh {
		t.Errorf("findings[0] = %+v, expected /high-trap HIGH", findings[0])
	}
	if findings[1].Pattern != "/low-trap" || findings[1].Severity != model.TrapSeverityLow {
		t.Errorf("findings[1] = %+v, expected /low-trap LOW", findings[1])
	}
}

// TestDetectCollapsesNumericSegments tests that ID-carrying URLs count
// as one pattern and carry example URLs.
func TestDetectCollapsesNumericSegments(t *testing.T) {
	t.Parallel()

	counts := map[string]int64{
		"/about":   4,
		"/contact": 4,
		"/pricing": 4,
		"/blog":    4,
	}
	// A calendar trap: hundreds of distinct day URLs, few hits each.
	for i := range 200 {
		counts[fmt.Sprintf("/calendar/2024/%d", i)] = 2
	}

	findings := New(WithMultiplier(5)).Detect(counts)
	if len(findings) != 1 {
		t.Fatalf("findings = %d, expected 1", len(findings))
	}
	finding := findings[0]
	if finding.Pattern != "/calendar/*/*" {
		t.Errorf("Pattern = %q, expected /calendar/*/*", finding.Pattern)
	}
	if finding.CrawlCount != 400 {
		t.Errorf("CrawlCount = %d, expected 400", finding.CrawlCount)
	}
	if len(finding.ExampleURLs) != DefaultExampleLimit {
		t.Errorf("ExampleURLs = %v, expected %d examples", finding.ExampleURLs, DefaultExampleLimit)
	}
	for _, url := range finding.ExampleURLs {
		if Normalize(url, nil) != finding.Pattern {
			t.Errorf("example %q does not collapse into %q", url, finding.Pattern)
		}
	}
}

// TestDetectCustomRules tests profile-supplied normalization applied
// before the built-in collapsing.
func TestDetectCustomRules(t *testing.T) {
	t.Parallel()

	rules := []Rule{
		{Pattern: regexp.MustCompile(`^/session/[a-f0-9]+`), Replacement: "/session/*"},
	}

	counts := map[string]int64{
		"/session/deadbeef/cart": 40,
		"/session/cafef00d/cart": 40,
		"/home":                  10,
		"/about":                 10,
		"/faq":                   10,
	}

	findings := New(WithMultiplier(5), WithRules(rules)).Detect(counts)
	if len(findings) != 1 {
		t.Fatalf("findings = %d, expected 1", len(findings))
	}
	if findings[0].Pattern != "/session/*/cart" {
		t.Errorf("Pattern = %q, expected /session/*/cart", findings[0].Pattern)
	}
	if findings[0].CrawlCount != 80 {
		t.Errorf("CrawlCount = %d, expected 80", findings[0].CrawlCount)
	}
}

// TestDetectDeterministic tests that repeated runs over the same
// counts produce identical output, including example selection.
func TestDetectDeterministic(t *testing.T) {
	t.Parallel()

	counts := make(map[string]int64)
	for i := range 20 {
		counts[fmt.Sprintf("/static-page-%c", 'a'+i)] = 5
	}
	for i := range 100 {
		counts[fmt.Sprintf("/items/%d", i)] = 3
	}

	d := New()
	first := d.Detect(counts)
	if len(first) == 0 {
		t.Fatal("expected at least one finding")
	}
	for range 5 {
		again := d.Detect(counts)
		if len(again) != len(first) {
			t.Fatalf("finding count changed between runs: %d vs %d", len(again), len(first))
		}
		for i := range again {
			if again[i].Pattern != first[i].Pattern ||
				again[i].CrawlCount != first[i].CrawlCount {
				t.Errorf("finding %d changed between runs: %+v vs %+v", i, again[i], first[i])
			}
			for j, url := range again[i].ExampleURLs {
				if url != first[i].ExampleURLs[j] {
					t.Errorf("example order changed between runs: %v vs %v",
						again[i].ExampleURLs, first[i].ExampleURLs)
				}
			}
		}
	}
}

// TestDetectNoTraps tests quiet distributions and empty input.
func TestDetectNoTraps(t *testing.T) {
	t.Parallel()

	if findings := New().Detect(nil); findings != nil {
		t.Errorf("Detect(nil) = %v, expected none", findings)
	}

	uniform := map[string]int64{"/a": 10, "/b": 11, "/c": 9, "/d": 10}
	if findings := New().Detect(uniform); len(findings) != 0 {
		t.Errorf("Detect(uniform) = %v, expected none", findings)
	}

	// A single pattern is its own baseline and can never exceed it.
	single := map[string]int64{"/only": 100000}
	if findings := New().Detect(single); len(findings) != 0 {
		t.Errorf("Detect(single) = %v, expected none", findings)
	}
}

// TestBaselinePolicies tests the two built-in policies over the same
// distribution.
func TestBaselinePolicies(t *testing.T) {
	t.Parallel()

	sorted := []int64{1, 2, 3, 4, 100}

	if got := (MedianPolicy{}).Baseline(sorted); got != 3 {
		t.Errorf("median = %v, expected 3", got)
	}
	if got := (MedianPolicy{}).Baseline([]int64{2, 4}); got != 3 {
		t.Errorf("even median = %v, expected 3", got)
	}
	if got := (PercentilePolicy{Percentile: 80}).Baseline(sorted); got != 4 {
		t.Errorf("p80 = %v, expected 4", got)
	}
	if got := (PercentilePolicy{Percentile: 100}).Baseline(sorted); got != 100 {
		t.Errorf("p100 = %v, expected 100", got)
	}
}

// TestNormalize tests the built-in pattern collapsing.
func TestNormalize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		path     string
		expected string
	}{
		{"/products/12345", "/products/*"},
		{"/products/12345/reviews/9", "/products/*/reviews/*"},
		{"/about", "/about"},
		{"/page1", "/page1"},
		{"/", "/"},
		{"", "/"},
		{"/2024/01/05", "/*/*/*"},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tc.path, nil); got != tc.expected {
				t.Errorf("Normalize(%q) = %q, expected %q", tc.path, got, tc.expected)
			}
		})
	}
}
