package pipeline

import (
	"io"
	"time"

	"github.com/petersawicki/seo-log-analyzer/internal/aggregate"
	"github.com/petersawicki/seo-log-analyzer/internal/model"
	"github.com/petersawicki/seo-log-analyzer/internal/stream"
)

// Analysis is the shared value the pipeline steps accumulate into:
// the raw line source going in, and the finished summary coming out.
type Analysis struct {
	// Source names the line source, typically a file path or "-" for
	// stdin.
	Source string

	// Reader is the line source. The pipeline does not close it;
	// acquisition and release belong to the caller.
	Reader io.Reader

	// State is the aggregation accumulator, populated by ingestion.
	State *aggregate.State

	// Ingest is the stream builder's terminal accounting, populated by
	// ingestion.
	Ingest stream.Summary

	// Findings holds the crawl-trap detector output.
	Findings []model.CrawlTrapFinding

	// Summary is the finished output, populated by finalization.
	Summary *model.AnalysisSummary

	// Err records a non-fatal step failure when the pipeline is
	// configured to continue on error.
	Err error
}

// NewAnalysis creates an Analysis over the given source.
func NewAnalysis(source string, r io.Reader) *Analysis {
	return &Analysis{
		Source: source,
		Reader: r,
		State:  aggregate.NewState(),
	}
}

// buildSummary assembles the final AnalysisSummary from the aggregation
// state, the ingest diagnostics and the trap findings.
func (a *Analysis) buildSummary(now time.Time, opts ...aggregate.Option) {
	summary := a.State.Finalize(opts...)

	summary.Source = a.Source
	summary.AnalyzedAt = now
	summary.TotalLines = a.Ingest.TotalLines
	summary.RecordCount = a.Ingest.RecordCount
	summary.ParseFailureCount = a.Ingest.FailureCount
	summary.FailuresByReason = a.Ingest.FailuresByReason
	summary.ParseFailures = a.Ingest.Failures
	summary.FirstTimestamp = a.Ingest.FirstTimestamp
	summary.LastTimestamp = a.Ingest.LastTimestamp
	summary.SourceExhausted = a.Ingest.Exhausted
	summary.TrapFindings = a.Findings

	a.Summary = summary
}

// mergeIngest folds another stream summary into s. Retained failure
// diagnostics are concatenated up to the largest cap the input streams
// were built with.
func mergeIngest(s *stream.Summary, other stream.Summary) {
	s.TotalLines += other.TotalLines
	s.RecordCount += other.RecordCount
	s.FailureCount += other.FailureCount
	for reason, n := range other.FailuresByReason {
		s.FailuresByReason[reason] += n
	}
	if other.FailureLimit > s.FailureLimit {
		s.FailureLimit = other.FailureLimit
	}
	for _, failure := range other.Failures {
		if len(s.Failures) >= s.FailureLimit {
			break
		}
		s.Failures = append(s.Failures, failure)
	}

	if other.FirstTimestamp != nil &&
		(s.FirstTimestamp == nil || other.FirstTimestamp.Before(*s.FirstTimestamp)) {
		s.FirstTimestamp = other.FirstTimestamp
	}
	if other.LastTimestamp != nil &&
		(s.LastTimestamp == nil || other.LastTimestamp.After(*s.LastTimestamp)) {
		s.LastTimestamp = other.LastTimestamp
	}
	s.Exhausted = s.RecordCount == 0
}
