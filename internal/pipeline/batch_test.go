package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/petersawicki/seo-log-analyzer/internal/model"
	"github.com/petersawicki/seo-log-analyzer/internal/stream"
	"github.com/petersawicki/seo-log-analyzer/internal/trap"
)

func inMemorySources(sources map[string]string) func(string) (io.ReadCloser, error) {
	return func(name string) (io.ReadCloser, error) {
		content, ok := sources[name]
		if !ok {
			return nil, fmt.Errorf("open %s: no such file", name)
		}
		return io.NopCloser(strings.NewReader(content)), nil
	}
}

// TestBatchProcess tests concurrent processing with order-preserving
// results.
func TestBatchProcess(t *testing.T) {
	t.Parallel()

	sources := map[string]string{
		"a.log": botLine(1, "/a") + "\n" + botLine(2, "/a"),
		"b.log": botLine(3, "/b"),
		"c.log": botLine(4, "/c") + "\n" + botLine(5, "/c") + "\n" + botLine(6, "/c"),
	}

	bp := NewBatchProcessor(
		newTestPipeline,
		WithOpenFunc(inMemorySources(sources)),
		WithConcurrency(2),
	)

	results, err := bp.Process(context.Background(), []string{"a.log", "b.log", "c.log"})
	if err != nil {
		t.Fatalf("Process() = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, expected 3", len(results))
	}

	expectedCounts := []int64{2, 1, 3}
	expectedSources := []string{"a.log", "b.log", "c.log"}
	for i, analysis := range results {
		if analysis == nil {
			t.Fatalf("results[%d] is nil", i)
		}
		if analysis.Source != expectedSources[i] {
			t.Errorf("results[%d].Source = %q, expected %q", i, analysis.Source, expectedSources[i])
		}
		if analysis.Summary.TotalRequests != expectedCounts[i] {
			t.Errorf("results[%d].TotalRequests = %d, expected %d",
				i, analysis.Summary.TotalRequests, expectedCounts[i])
		}
	}
}

// TestBatchProcessOpenFailure tests that an unreadable source aborts
// the batch with its error.
func TestBatchProcessOpenFailure(t *testing.T) {
	t.Parallel()

	bp := NewBatchProcessor(
		newTestPipeline,
		WithOpenFunc(inMemorySources(map[string]string{"good.log": botLine(1, "/a")})),
	)

	_, err := bp.Process(context.Background(), []string{"good.log", "missing.log"})
	if err == nil {
		t.Fatal("Process() = nil, expected an open error")
	}
	if !strings.Contains(err.Error(), "missing.log") {
		t.Errorf("error = %v, expected it to name the missing source", err)
	}
}

// TestBatchProcessCancelled tests context cancellation before work
// starts.
func TestBatchProcessCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bp := NewBatchProcessor(
		newTestPipeline,
		WithOpenFunc(inMemorySources(map[string]string{"a.log": botLine(1, "/a")})),
	)

	if _, err := bp.Process(ctx, []string{"a.log"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Process() = %v, expected context.Canceled", err)
	}
}

// TestMergeAnalyses tests combining per-source states into one summary
// spanning the whole batch, with trap detection over the union.
func TestMergeAnalyses(t *testing.T) {
	t.Parallel()

	var aLines, bLines []string
	for i := range 60 {
		aLines = append(aLines, botLine(i, "/loop"))
		bLines = append(bLines, botLine(i, "/loop"))
	}
	for i := range 10 {
		aLines = append(aLines, botLine(i, fmt.Sprintf("/page-a%c", 'a'+i)))
		bLines = append(bLines, botLine(i, fmt.Sprintf("/page-b%c", 'a'+i)))
	}

	sources := map[string]string{
		"a.log": strings.Join(aLines, "\n"),
		"b.log": strings.Join(bLines, "\n"),
	}

	bp := NewBatchProcessor(newTestPipeline, WithOpenFunc(inMemorySources(sources)))
	results, err := bp.Process(context.Background(), []string{"a.log", "b.log"})
	if err != nil {
		t.Fatalf("Process() = %v", err)
	}

	merged := MergeAnalyses(results, trap.New())
	if merged.TotalRequests != 140 {
		t.Errorf("TotalRequests = %d, expected 140", merged.TotalRequests)
	}
	if merged.TotalLines != 140 || merged.RecordCount != 140 {
		t.Errorf("lines = %d/%d, expected 140/140", merged.TotalLines, merged.RecordCount)
	}

	found := false
	for _, finding := range merged.TrapFindings {
		if finding.Pattern == "/loop" && finding.CrawlCount == 120 {
			found = true
		}
	}
	if !found {
		t.Errorf("TrapFindings = %+v, expected /loop with 120 crawls", merged.TrapFindings)
	}

	// Merging must not disturb the per-source summaries.
	if results[0].Summary.TotalRequests != 70 {
		t.Errorf("per-source summary changed: TotalRequests = %d, expected 70",
			results[0].Summary.TotalRequests)
	}
}

// TestMergeAnalysesFailureCap tests that the merged summary retains
// parse failures up to the cap the input streams were built with, not a
// fixed package default.
func TestMergeAnalysesFailureCap(t *testing.T) {
	t.Parallel()

	makeAnalysis := func(source string, failures, limit int) *Analysis {
		a := NewAnalysis(source, nil)
		a.Ingest = stream.Summary{
			FailuresByReason: make(map[model.FailureReason]int64),
			FailureLimit:     limit,
		}
		for i := range failures {
			a.Ingest.Failures = append(a.Ingest.Failures, model.ParseFailure{
				LineNumber: i + 1,
				Line:       "garbage",
				Reason:     model.FailureFieldCountMismatch,
			})
		}
		a.Ingest.TotalLines = int64(failures)
		a.Ingest.FailureCount = int64(failures)
		a.Ingest.FailuresByReason[model.FailureFieldCountMismatch] = int64(failures)
		return a
	}

	t.Run("raised cap retains more than the default", func(t *testing.T) {
		t.Parallel()
		analyses := []*Analysis{
			makeAnalysis("a.log", 90, 150),
			makeAnalysis("b.log", 40, 150),
		}

		merged := MergeAnalyses(analyses, nil)
		if got := len(merged.ParseFailures); got != 130 {
			t.Errorf("retained %d failures, expected all 130 under cap 150", got)
		}
		if merged.ParseFailureCount != 130 {
			t.Errorf("ParseFailureCount = %d, expected 130", merged.ParseFailureCount)
		}
	})

	t.Run("lowered cap still bounds retention", func(t *testing.T) {
		t.Parallel()
		analyses := []*Analysis{
			makeAnalysis("a.log", 5, 3),
			makeAnalysis("b.log", 5, 3),
		}

		merged := MergeAnalyses(analyses, nil)
		if got := len(merged.ParseFailures); got != 3 {
			t.Errorf("retained %d failures, expected cap of 3", got)
		}
		if merged.ParseFailureCount != 10 {
			t.Errorf("ParseFailureCount = %d, expected 10", merged.ParseFailureCount)
		}
	})
}
