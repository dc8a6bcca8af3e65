package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/petersawicki/seo-log-analyzer/internal/aggregate"
	"github.com/petersawicki/seo-log-analyzer/internal/stream"
	"github.com/petersawicki/seo-log-analyzer/internal/trap"
)

// cancelCheckInterval is how many records the ingest step folds between
// context checks. Checking per record would dominate the hot path.
const cancelCheckInterval = 4096

// IngestStep drives the record stream over the analysis source and
// folds every enriched record into the aggregation state. Parse
// failures become summary data; only read errors fail the step.
type IngestStep struct {
	classifier stream.Classifier
	streamOpts []stream.Option
	logger     *slog.Logger
}

// IngestOption configures an IngestStep.
type IngestOption func(*IngestStep)

// WithStreamOptions passes options through to the record stream, such
// as a fixed format or a probe-line override.
func WithStreamOptions(opts ...stream.Option) IngestOption {
	return func(s *IngestStep) {
		s.streamOpts = append(s.streamOpts, opts...)
	}
}

// WithIngestLogger sets a custom logger for the ingest step.
func WithIngestLogger(logger *slog.Logger) IngestOption {
	return func(s *IngestStep) {
		s.logger = logger
	}
}

// NewIngestStep creates the ingestion step. The classifier must not be
// nil; it is shared across sources so identity caches carry over.
func NewIngestStep(classifier stream.Classifier, opts ...IngestOption) *IngestStep {
	s := &IngestStep{
		classifier: classifier,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *IngestStep) Name() string {
	return "ingest"
}

// Do executes the ingest step.
func (s *IngestStep) Do(ctx context.Context, analysis *Analysis) error {
	records := stream.New(analysis.Reader, s.classifier, s.streamOpts...)

	var folded int64
	for records.Scan() {
		analysis.State.Update(records.Record(), records.Identity())

		folded++
		if folded%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
	}

	if err := records.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", analysis.Source, err)
	}

	analysis.Ingest = records.Summary()

	s.logger.Debug("source ingested",
		"source", analysis.Source,
		"format", analysis.Ingest.Format.String(),
		"records", analysis.Ingest.RecordCount,
		"parse_failures", analysis.Ingest.FailureCount,
	)

	if analysis.Ingest.Exhausted {
		s.logger.Warn("source yielded no valid records",
			"source", analysis.Source,
			"total_lines", analysis.Ingest.TotalLines,
		)
	}

	return nil
}

// TrapStep runs the crawl-trap detector over the accumulated per-URL
// crawl counts.
type TrapStep struct {
	detector *trap.Detector
}

// NewTrapStep creates the trap-detection step.
func NewTrapStep(detector *trap.Detector) *TrapStep {
	return &TrapStep{detector: detector}
}

// Name returns the step name.
func (s *TrapStep) Name() string {
	return "trap_detect"
}

// Do executes the trap-detection step.
func (s *TrapStep) Do(_ context.Context, analysis *Analysis) error {
	analysis.Findings = s.detector.Detect(analysis.State.CrawlCounts())
	return nil
}

// SummarizeStep finalizes the aggregation state into the analysis
// summary. It must run after ingestion and trap detection.
type SummarizeStep struct {
	aggregateOpts []aggregate.Option

	// now is injectable for tests.
	now func() time.Time
}

// SummarizeOption configures a SummarizeStep.
type SummarizeOption func(*SummarizeStep)

// WithAggregateOptions passes options through to state finalization,
// such as the slow-page threshold or the top-URL limit.
func WithAggregateOptions(opts ...aggregate.Option) SummarizeOption {
	return func(s *SummarizeStep) {
		s.aggregateOpts = append(s.aggregateOpts, opts...)
	}
}

// NewSummarizeStep creates the finalization step.
func NewSummarizeStep(opts ...SummarizeOption) *SummarizeStep {
	s := &SummarizeStep{
		now: time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *SummarizeStep) Name() string {
	return "summarize"
}

// Do executes the finalization step.
func (s *SummarizeStep) Do(_ context.Context, analysis *Analysis) error {
	analysis.buildSummary(s.now(), s.aggregateOpts...)
	return nil
}

// DefaultSteps returns the standard three-step analysis in execution
// order: ingest, trap detection, summary finalization.
func DefaultSteps(
	classifier stream.Classifier,
	detector *trap.Detector,
	ingestOpts []IngestOption,
	summarizeOpts []SummarizeOption,
) []Step {
	return []Step{
		NewIngestStep(classifier, ingestOpts...),
		NewTrapStep(detector),
		NewSummarizeStep(summarizeOpts...),
	}
}
