package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/petersawicki/seo-log-analyzer/internal/aggregate"
	"github.com/petersawicki/seo-log-analyzer/internal/model"
	"github.com/petersawicki/seo-log-analyzer/internal/stream"
	"github.com/petersawicki/seo-log-analyzer/internal/trap"
)

// BatchProcessor handles concurrent processing of multiple log sources.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding
// batch functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-source execution
// 2. It allows different batch strategies (e.g., merged summaries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each source.
	// A factory ensures each source gets a fresh pipeline instance
	// while sharing caches that live inside the steps (classifier).
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrently processed
	// sources.
	concurrency int

	// open acquires a source by name. Injectable for tests; defaults
	// to os.Open.
	open func(name string) (io.ReadCloser, error)

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrently processed
// sources. Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithOpenFunc replaces how sources are acquired by name.
func WithOpenFunc(open func(name string) (io.ReadCloser, error)) BatchOption {
	return func(b *BatchProcessor) {
		if open != nil {
			b.open = open
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each source to create a
// fresh pipeline instance, so per-source pipeline state never leaks
// between sources.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
		open:            func(name string) (io.ReadCloser, error) { return os.Open(name) },
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// Process analyzes multiple sources concurrently, respecting the
// configured concurrency limit and context cancellation. Results keep
// the order of the input sources.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each source gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously. Unlike read errors, per-source analysis problems
// (parse failures, empty sources) are data in the summaries, so the
// only errors that abort a batch are acquisition failures and
// cancellation.
func (bp *BatchProcessor) Process(ctx context.Context, sources []string) ([]*Analysis, error) {
	bp.logger.Info("starting batch processing",
		"total_sources", len(sources),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	results := make([]*Analysis, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, source := range sources {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			r, err := bp.open(source)
			if err != nil {
				return err
			}
			defer r.Close() //nolint:errcheck // read-only source

			analysis := NewAnalysis(source, r)
			if err := bp.pipelineFactory().Execute(ctx, analysis); err != nil {
				return err
			}

			// Slots are disjoint per goroutine; no mutex needed.
			results[i] = analysis

			bp.logger.Info("source analyzed",
				"source", source,
				"records", analysis.Ingest.RecordCount,
			)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_sources", len(sources),
		"elapsed", time.Since(startTime),
	)

	return results, err
}

// MergeAnalyses combines the states of several completed analyses into
// one summary spanning all their sources, re-running trap detection
// over the combined crawl counts. The input analyses must have finished
// ingestion; their individual summaries are left untouched.
func MergeAnalyses(
	analyses []*Analysis,
	detector *trap.Detector,
	opts ...aggregate.Option,
) *model.AnalysisSummary {
	merged := NewAnalysis("merged", nil)
	merged.Ingest = stream.Summary{
		FailuresByReason: make(map[model.FailureReason]int64),
	}

	for _, a := range analyses {
		if a == nil {
			continue
		}
		merged.State.Merge(a.State)
		mergeIngest(&merged.Ingest, a.Ingest)
	}

	if detector != nil {
		merged.Findings = detector.Detect(merged.State.CrawlCounts())
	}

	merged.buildSummary(time.Now(), opts...)
	return merged.Summary
}
