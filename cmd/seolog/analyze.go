package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petersawicki/seo-log-analyzer/internal/aggregate"
	"github.com/petersawicki/seo-log-analyzer/internal/classifier"
	"github.com/petersawicki/seo-log-analyzer/internal/config"
	"github.com/petersawicki/seo-log-analyzer/internal/database"
	"github.com/petersawicki/seo-log-analyzer/internal/log"
	"github.com/petersawicki/seo-log-analyzer/internal/model"
	"github.com/petersawicki/seo-log-analyzer/internal/parser"
	"github.com/petersawicki/seo-log-analyzer/internal/pipeline"
	"github.com/petersawicki/seo-log-analyzer/internal/report"
	"github.com/petersawicki/seo-log-analyzer/internal/stream"
	"github.com/petersawicki/seo-log-analyzer/internal/trap"
)

// stdinSource is the source name that reads from standard input.
const stdinSource = "-"

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [log-file...]",
		Short: "Analyze access logs for crawl budget and bot activity",
		Long: `Analyze parses web server access logs and reports on SEO-relevant traffic.

It classifies each request into search engine crawlers and human visitors,
then reports:
- Crawl budget spent per bot family (requests, bytes, error rates)
- Googlebot desktop vs. smartphone split
- Top crawled URLs, slow pages, and error pages served to bots
- Crawl traps: URL patterns crawled far above the site baseline
- Requests faking a crawler user-agent (with DNS or IP-range verification)

Log formats are detected automatically (Apache/nginx common and combined,
with or without a trailing request-time field). Use "-" to read from stdin.

Examples:
  # Analyze a single access log
  seolog analyze access.log

  # Analyze several logs and add a merged report across all of them
  seolog analyze --merge jan.log feb.log mar.log

  # Force the log format instead of detecting it
  seolog analyze --format combined access.log

  # Output JSON report to a file
  seolog analyze --json -o report.json access.log

  # Read from stdin
  zcat access.log.gz | seolog analyze -

Profile file (.seolog) example:
  signatures:
    - token: "AcmeBot"
      family: "OTHER_KNOWN_BOT"
  verification:
    mode: dns
  normalizationRules:
    - pattern: "^/session/[a-f0-9]+"
      replacement: "/session/*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runAnalyzeCmd,
	}

	// Parsing flags
	cmd.Flags().StringP("format", "F", "",
		"Log format: common, combined, or combined+timing (default: auto-detect)")
	cmd.Flags().Int("probe-lines", config.DefaultProbeLines,
		"Number of lines sampled for format detection")

	// Analysis tuning flags
	cmd.Flags().Float64("slow-ms", config.DefaultSlowPageThresholdMs,
		"Mean response time in milliseconds above which a page is reported as slow")
	cmd.Flags().Float64("trap-multiplier", config.DefaultTrapMultiplier,
		"Factor above the site baseline at which a URL pattern is flagged as a crawl trap")
	cmd.Flags().Float64("trap-percentile", 0,
		"Use this percentile of per-pattern crawl counts as the trap baseline instead of the median")
	cmd.Flags().Int("top-urls", config.DefaultTopURLLimit,
		"Number of URLs shown in the top-crawled view")
	cmd.Flags().Int("error-pages", config.DefaultErrorPageLimit,
		"Number of URLs shown in the bot-error view")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sources analyzed concurrently")
	cmd.Flags().Bool("merge", false,
		"Add a merged report across all sources")

	// Profile file
	cmd.Flags().StringP("profile", "c", "",
		"Profile file path (default: .seolog in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown and --csv)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json and --csv)")
	cmd.Flags().Bool("csv", false,
		"Output CSV report (mutually exclusive with --json and --markdown)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with visitor address anonymization
	logger := log.NewMaskingLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runAnalysis(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.Format, err = cmd.Flags().GetString("format")
	if err != nil {
		return nil, err
	}

	cfg.ProbeLines, err = cmd.Flags().GetInt("probe-lines")
	if err != nil {
		return nil, err
	}

	cfg.SlowPageThresholdMs, err = cmd.Flags().GetFloat64("slow-ms")
	if err != nil {
		return nil, err
	}

	cfg.TrapMultiplier, err = cmd.Flags().GetFloat64("trap-multiplier")
	if err != nil {
		return nil, err
	}

	cfg.TrapPercentile, err = cmd.Flags().GetFloat64("trap-percentile")
	if err != nil {
		return nil, err
	}

	cfg.TopURLLimit, err = cmd.Flags().GetInt("top-urls")
	if err != nil {
		return nil, err
	}

	cfg.ErrorPageLimit, err = cmd.Flags().GetInt("error-pages")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.Merge, err = cmd.Flags().GetBool("merge")
	if err != nil {
		return nil, err
	}

	cfg.ProfilePath, err = cmd.Flags().GetString("profile")
	if err != nil {
		return nil, err
	}

	// Load the site profile.
	// If user explicitly specified a profile path, error if not found.
	// If no path specified, silently skip when no file is found.
	explicitProfilePath := cfg.ProfilePath != ""
	profilePath := config.FindProfileFile(cfg.ProfilePath)

	if profilePath != "" {
		cfg.Profile, err = config.LoadProfile(profilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile %s: %w", profilePath, err)
		}
	} else if explicitProfilePath {
		// User explicitly specified a profile file that doesn't exist
		return nil, fmt.Errorf("profile file not found: %s", cfg.ProfilePath)
	}

	// Profile thresholds apply only when the flag was left at its default
	if cfg.Profile != nil {
		if !cmd.Flags().Changed("slow-ms") && cfg.Profile.SlowPageThresholdMs > 0 {
			cfg.SlowPageThresholdMs = cfg.Profile.SlowPageThresholdMs
		}
		if !cmd.Flags().Changed("trap-multiplier") && cfg.Profile.TrapMultiplier > 1 {
			cfg.TrapMultiplier = cfg.Profile.TrapMultiplier
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.CSVReport, err = cmd.Flags().GetBool("csv")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Always save to database using XDG data directory
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	// Get positional arguments (log file paths)
	cfg.Sources = args

	return cfg, nil
}

// runAnalysis executes the analysis over all configured sources.
func runAnalysis(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting analysis",
		"sources", cfg.Sources,
		"batchSize", cfg.BatchSize,
		"merge", cfg.Merge,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.HistoryDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	cls, err := buildClassifier(cfg)
	if err != nil {
		return err
	}

	detector, err := buildDetector(cfg)
	if err != nil {
		return err
	}

	ingestOpts, err := buildIngestOptions(cfg, logger)
	if err != nil {
		return err
	}
	summarizeOpts := []pipeline.SummarizeOption{
		pipeline.WithAggregateOptions(aggregateOptions(cfg)...),
	}

	factory := func() *pipeline.Pipeline {
		p := pipeline.New(pipeline.WithLogger(logger))
		p.AddSteps(pipeline.DefaultSteps(cls, detector, ingestOpts, summarizeOpts)...)
		return p
	}

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
		pipeline.WithOpenFunc(openSource),
	)

	startTime := time.Now()
	analyses, err := bp.Process(ctx, cfg.Sources)
	if err != nil {
		return err
	}
	logger.Info("analysis finished",
		"sources", len(analyses),
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	// Open the report destination once; all summaries go to it.
	writer, closeOutput, err := newReportWriter(cfg)
	if err != nil {
		return err
	}
	defer closeOutput()

	for _, analysis := range analyses {
		if analysis == nil || analysis.Summary == nil {
			continue
		}
		if _, err := writer.Write(analysis.Summary); err != nil {
			return fmt.Errorf("failed to write report for %s: %w", analysis.Source, err)
		}
		if err := saveSummary(ctx, db, analysis.Summary, logger); err != nil {
			logger.Error("failed to save analysis", "source", analysis.Source, "error", err)
		}
	}

	// Merged report across all sources
	if cfg.Merge && len(analyses) > 1 {
		merged := pipeline.MergeAnalyses(analyses, detector, aggregateOptions(cfg)...)
		if _, err := writer.Write(merged); err != nil {
			return fmt.Errorf("failed to write merged report: %w", err)
		}
		if err := saveSummary(ctx, db, merged, logger); err != nil {
			logger.Error("failed to save merged analysis", "error", err)
		}
	}

	return nil
}

// buildClassifier constructs the bot classifier from the profile.
// Without a profile the built-in signatures are used and no
// verification runs.
func buildClassifier(cfg *config.Config) (*classifier.Classifier, error) {
	if cfg.Profile == nil {
		return classifier.New(), nil
	}

	signatures, err := cfg.Profile.ClassifierSignatures()
	if err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	opts := []classifier.Option{classifier.WithSignatures(signatures)}

	verifier, err := cfg.Profile.Verifier()
	if err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	if verifier != nil {
		opts = append(opts, classifier.WithVerifier(verifier))
	}

	return classifier.New(opts...), nil
}

// buildDetector constructs the crawl trap detector from config and
// profile.
func buildDetector(cfg *config.Config) (*trap.Detector, error) {
	opts := []trap.Option{trap.WithMultiplier(cfg.TrapMultiplier)}

	if cfg.TrapPercentile > 0 {
		opts = append(opts, trap.WithBaselinePolicy(trap.PercentilePolicy{Percentile: cfg.TrapPercentile}))
	}

	if cfg.Profile != nil {
		rules, err := cfg.Profile.TrapRules()
		if err != nil {
			return nil, fmt.Errorf("invalid profile: %w", err)
		}
		if len(rules) > 0 {
			opts = append(opts, trap.WithRules(rules))
		}
	}

	return trap.New(opts...), nil
}

// buildIngestOptions translates parsing config into ingest step options.
func buildIngestOptions(cfg *config.Config, logger *slog.Logger) ([]pipeline.IngestOption, error) {
	var streamOpts []stream.Option

	if cfg.Format != "" {
		format, err := parser.ParseFormat(cfg.Format)
		if err != nil {
			return nil, err
		}
		streamOpts = append(streamOpts, stream.WithFormat(format))
	}
	if cfg.ProbeLines > 0 {
		streamOpts = append(streamOpts, stream.WithProbeLines(cfg.ProbeLines))
	}

	return []pipeline.IngestOption{
		pipeline.WithStreamOptions(streamOpts...),
		pipeline.WithIngestLogger(logger),
	}, nil
}

// aggregateOptions translates view config into aggregation options.
func aggregateOptions(cfg *config.Config) []aggregate.Option {
	return []aggregate.Option{
		aggregate.WithTopURLLimit(cfg.TopURLLimit),
		aggregate.WithErrorPageLimit(cfg.ErrorPageLimit),
		aggregate.WithSlowPageThreshold(cfg.SlowPageThresholdMs),
	}
}

// openSource acquires a log source by name. "-" reads standard input.
func openSource(name string) (io.ReadCloser, error) {
	if name == stdinSource {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name) //nolint:gosec // User-provided log path is intentional
}

// newReportWriter builds the report writer selected by the config and
// the destination it writes to. The returned close function flushes
// the destination file, if any.
func newReportWriter(cfg *config.Config) (report.Writer, func(), error) {
	var output io.Writer = os.Stdout
	closeOutput := func() {}

	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output file: %w", err)
		}
		output = f
		closeOutput = func() { _ = f.Close() }
	}

	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint()), closeOutput, nil
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output), closeOutput, nil
	case cfg.CSVReport:
		return report.NewCSVWriter(output), closeOutput, nil
	default:
		opts := []report.SimpleWriterOption{report.WithVerbose(cfg.Verbose)}
		return report.NewSimpleWriter(output, opts...), closeOutput, nil
	}
}

// saveSummary saves the analysis summary to the database if enabled.
// If db is nil, this function is a no-op.
func saveSummary(ctx context.Context, db *database.HistoryDB, summary *model.AnalysisSummary, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	id, err := db.SaveRun(ctx, summary)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	logger.Info("analysis saved to database", "source", summary.Source, "run_id", id)
	return nil
}
