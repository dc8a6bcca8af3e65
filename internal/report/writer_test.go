package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/petersawicki/seo-log-analyzer/internal/model"
)

func sampleSummary() *model.AnalysisSummary {
	first := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	last := time.Date(2024, time.January, 3, 22, 15, 0, 0, time.FixedZone("", 2*60*60))

	return &model.AnalysisSummary{
		Source:            "access.log",
		AnalyzedAt:        time.Date(2024, time.February, 1, 12, 0, 0, 0, time.UTC),
		TotalLines:        1205,
		RecordCount:       1200,
		ParseFailureCount: 5,
		FailuresByReason: map[model.FailureReason]int64{
			model.FailureFieldCountMismatch: 3,
			model.FailureStatusNotInteger:   2,
		},
		ParseFailures: []model.ParseFailure{
			{LineNumber: 17, Line: "garbage", Reason: model.FailureFieldCountMismatch},
		},
		FirstTimestamp:  &first,
		LastTimestamp:   &last,
		TotalRequests:   1200,
		BotRequests:     900,
		BotSharePercent: 75,
		TotalBytes:      5242880,
		Families: []model.FamilyBudget{
			{
				Family:           model.FamilyGooglebot,
				Requests:         700,
				Bytes:            4000000,
				Errors:           70,
				ErrorRatePercent: 10,
				SharePercent:     58.333333,
				StatusClasses:    model.StatusClassCounts{Success: 600, Redirect: 30, ClientError: 60, ServerError: 10},
			},
			{
				Family:       model.FamilyHuman,
				Requests:     300,
				SharePercent: 25,
			},
		},
		TopURLs: []model.URLActivity{
			{
				URL:             "/search",
				Count:           500,
				BotCount:        490,
				BotSharePercent: 98,
				StatusCounts:    map[int]int64{200: 480, 404: 20},
				HasResponseTime: true,
				MeanResponseMs:  240.5,
				P95ResponseMs:   890,
				MaxResponseMs:   1203,
			},
		},
		SlowPages: []model.SlowPage{
			{URL: "/search", Count: 500, MeanResponseMs: 1240.5, P95ResponseMs: 2890, MaxResponseMs: 4203},
		},
		ErrorPages: []model.ErrorPage{
			{URL: "/dead", ErrorCount: 40, StatusCounts: map[int]int64{404: 40}},
		},
		Hourly: []model.HourActivity{
			{Bucket: "2024-01-01 08", Total: 320, ByFamily: map[model.BotFamily]int64{
				model.FamilyGooglebot: 250,
				model.FamilyHuman:     70,
			}},
		},
		Googlebot: model.GooglebotSplit{Desktop: 400, Mobile: 280, Unspecified: 20},
		TrapFindings: []model.CrawlTrapFinding{
			{
				Pattern:     "/search",
				CrawlCount:  490,
				Baseline:    12,
				Deviation:   40.833333,
				Severity:    model.TrapSeverityHigh,
				ExampleURLs: []string{"/search"},
			},
		},
	}
}

// TestJSONWriterRoundTrip tests the lossless export property: writing
// a summary to JSON and reading it back preserves every count, enum
// name and timestamp.
func TestJSONWriterRoundTrip(t *testing.T) {
	t.Parallel()

	summary := sampleSummary()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf).Write(summary); err != nil {
		t.Fatalf("Write() = %v", err)
	}

	parsed, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() = %v", err)
	}

	if !reflect.DeepEqual(parsed.FailuresByReason, summary.FailuresByReason) {
		t.Errorf("FailuresByReason = %v, expected %v", parsed.FailuresByReason, summary.FailuresByReason)
	}
	if !reflect.DeepEqual(parsed.Families, summary.Families) {
		t.Errorf("Families = %+v, expected %+v", parsed.Families, summary.Families)
	}
	if !reflect.DeepEqual(parsed.TrapFindings, summary.TrapFindings) {
		t.Errorf("TrapFindings = %+v, expected %+v", parsed.TrapFindings, summary.TrapFindings)
	}
	if !reflect.DeepEqual(parsed.Hourly, summary.Hourly) {
		t.Errorf("Hourly = %+v, expected %+v", parsed.Hourly, summary.Hourly)
	}
	if parsed.Googlebot != summary.Googlebot {
		t.Errorf("Googlebot = %+v, expected %+v", parsed.Googlebot, summary.Googlebot)
	}
	if !parsed.FirstTimestamp.Equal(*summary.FirstTimestamp) ||
		!parsed.LastTimestamp.Equal(*summary.LastTimestamp) {
		t.Error("timestamps did not survive the round trip")
	}
}

// TestJSONWriterEnumNames tests that enums export as their names, not
// integers.
func TestJSONWriterEnumNames(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(sampleSummary()); err != nil {
		t.Fatalf("Write() = %v", err)
	}

	out := buf.String()
	for _, name := range []string{
		`"GOOGLEBOT"`, `"HUMAN"`, `"HIGH"`, `"FIELD_COUNT_MISMATCH"`, `"STATUS_NOT_INTEGER"`,
	} {
		if !strings.Contains(out, name) {
			t.Errorf("JSON output missing enum name %s", name)
		}
	}
}

// TestSimpleWriterContent tests the terminal report's key sections.
func TestSimpleWriterContent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewSimpleWriter(&buf).Write(sampleSummary()); err != nil {
		t.Fatalf("Write() = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"CRAWL BUDGET REPORT",
		"access.log",
		"GOOGLEBOT",
		"1,200",
		"[HIGH] /search",
		"GOOGLEBOT DEVICE SPLIT",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("simple output missing %q", want)
		}
	}
}

// TestSimpleWriterVerbose tests that verbose mode surfaces per-line
// failures and hourly activity.
func TestSimpleWriterVerbose(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(sampleSummary()); err != nil {
		t.Fatalf("Write() = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "HOURLY ACTIVITY") {
		t.Error("verbose output missing hourly section")
	}
	if !strings.Contains(out, "line 17") {
		t.Error("verbose output missing parse-failure detail")
	}
}

// TestCSVWriterSections tests that every section parses as CSV and
// carries its rows.
func TestCSVWriterSections(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewCSVWriter(&buf).Write(sampleSummary()); err != nil {
		t.Fatalf("Write() = %v", err)
	}

	out := buf.String()
	for _, section := range []string{"# families", "# top_urls", "# hourly", "# crawl_traps"} {
		if !strings.Contains(out, section) {
			t.Errorf("CSV output missing section %q", section)
		}
	}

	reader := csv.NewReader(strings.NewReader(out))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	found := false
	for _, record := range records {
		if record[0] == "GOOGLEBOT" && record[1] == "700" {
			found = true
		}
	}
	if !found {
		t.Error("CSV output missing the GOOGLEBOT family row")
	}
}

// TestMarkdownWriterContent tests the markdown report's key elements.
func TestMarkdownWriterContent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(sampleSummary()); err != nil {
		t.Fatalf("Write() = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Crawl Budget Report",
		"## Crawl Budget by Family",
		"## Crawl Traps",
		"GOOGLEBOT",
		"mermaid",
		"`/search`",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q", want)
		}
	}
}

// TestMultiWriter tests fan-out to several writers and error
// propagation.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	mw := NewMultiWriter(NewJSONWriter(&a), NewSimpleWriter(&b))

	if _, err := mw.Write(sampleSummary()); err != nil {
		t.Fatalf("Write() = %v", err)
	}
	if a.Len() == 0 || b.Len() == 0 {
		t.Error("MultiWriter skipped a destination")
	}

	failing := NewMultiWriter(&failingWriter{}, NewJSONWriter(&bytes.Buffer{}))
	if _, err := failing.Write(sampleSummary()); err == nil {
		t.Error("expected the first writer's error to propagate")
	}
}

type failingWriter struct{}

func (*failingWriter) Write(*model.AnalysisSummary) (int, error) {
	return 0, errors.New("destination unavailable")
}
