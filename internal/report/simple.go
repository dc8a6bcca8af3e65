package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/petersawicki/seo-log-analyzer/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose enables additional detail (per-line parse failures,
	// hourly histogram).
	verbose bool

	// printer formats counts with locale-aware digit grouping, so
	// "12,403,511 lines" stays readable.
	printer *message.Printer
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		printer:    message.NewPrinter(language.English),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.AnalysisSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeDiagnostics(&sb, summary)
	w.writeBudget(&sb, summary)
	w.writeGooglebot(&sb, summary)
	w.writeTopURLs(&sb, summary)
	w.writeSlowPages(&sb, summary)
	w.writeErrorPages(&sb, summary)
	w.writeTraps(&sb, summary)
	if w.verbose {
		w.writeHourly(&sb, summary)
		w.writeFailures(&sb, summary)
	}

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.AnalysisSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      CRAWL BUDGET REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Source:        %s\n", summary.Source))
	sb.WriteString(fmt.Sprintf("Analyzed:      %s\n", summary.AnalyzedAt.Format("2006-01-02 15:04:05 MST")))
	if summary.FirstTimestamp != nil && summary.LastTimestamp != nil {
		sb.WriteString(fmt.Sprintf("Log window:    %s - %s\n",
			summary.FirstTimestamp.Format("2006-01-02 15:04:05 -0700"),
			summary.LastTimestamp.Format("2006-01-02 15:04:05 -0700")))
	}

	if summary.SourceExhausted {
		sb.WriteString("Status:        NO VALID RECORDS (results are not meaningful)\n")
	} else {
		sb.WriteString("Status:        Complete\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeDiagnostics(sb *strings.Builder, summary *model.AnalysisSummary) {
	w.section(sb, "PARSE DIAGNOSTICS")

	sb.WriteString(w.printer.Sprintf("  Lines:          %d\n", summary.TotalLines))
	sb.WriteString(w.printer.Sprintf("  Records:        %d\n", summary.RecordCount))
	sb.WriteString(w.printer.Sprintf("  Parse failures: %d\n", summary.ParseFailureCount))
	for _, rc := range sortedReasons(summary.FailuresByReason) {
		sb.WriteString(w.printer.Sprintf("    %-24s %d\n", rc.reason.String(), rc.count))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeBudget(sb *strings.Builder, summary *model.AnalysisSummary) {
	w.section(sb, "CRAWL BUDGET BY FAMILY")

	sb.WriteString(w.printer.Sprintf("  Total requests: %d\n", summary.TotalRequests))
	sb.WriteString(w.printer.Sprintf("  Bot requests:   %d (%.1f%%)\n",
		summary.BotRequests, summary.BotSharePercent))
	sb.WriteString(w.printer.Sprintf("  Bytes served:   %d\n", summary.TotalBytes))
	sb.WriteString("\n")

	if len(summary.Families) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(fmt.Sprintf("  %-20s %12s %8s %8s %8s\n",
		"FAMILY", "REQUESTS", "SHARE", "ERRORS", "ERR%"))
	for _, family := range summary.Families {
		sb.WriteString(w.printer.Sprintf("  %-20s %12d %7.1f%% %8d %7.1f%%\n",
			family.Family.String(), family.Requests, family.SharePercent,
			family.Errors, family.ErrorRatePercent))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeGooglebot(sb *strings.Builder, summary *model.AnalysisSummary) {
	if summary.Googlebot.Total() == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "GOOGLEBOT DEVICE SPLIT")
	sb.WriteString(w.printer.Sprintf("  Desktop:     %d\n", summary.Googlebot.Desktop))
	sb.WriteString(w.printer.Sprintf("  Mobile:      %d\n", summary.Googlebot.Mobile))
	sb.WriteString(w.printer.Sprintf("  Unspecified: %d\n", summary.Googlebot.Unspecified))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeTopURLs(sb *strings.Builder, summary *model.AnalysisSummary) {
	if len(summary.TopURLs) == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "TOP CRAWLED URLS")
	if len(summary.TopURLs) == 0 {
		sb.WriteString("  No URLs recorded\n\n")
		return
	}

	sb.WriteString(fmt.Sprintf("  %-44s %10s %10s\n", "URL", "REQUESTS", "BOT%"))
	for _, url := range summary.TopURLs {
		sb.WriteString(w.printer.Sprintf("  %-44s %10d %9.1f%%\n",
			truncate(url.URL, 44), url.Count, url.BotSharePercent))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSlowPages(sb *strings.Builder, summary *model.AnalysisSummary) {
	if len(summary.SlowPages) == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "SLOW PAGES")
	if len(summary.SlowPages) == 0 {
		sb.WriteString("  No slow pages\n\n")
		return
	}

	sb.WriteString(fmt.Sprintf("  %-44s %8s %8s %8s\n", "URL", "MEAN", "P95", "MAX"))
	for _, page := range summary.SlowPages {
		sb.WriteString(fmt.Sprintf("  %-44s %6.0fms %6.0fms %6.0fms\n",
			truncate(page.URL, 44), page.MeanResponseMs, page.P95ResponseMs, page.MaxResponseMs))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeErrorPages(sb *strings.Builder, summary *model.AnalysisSummary) {
	if len(summary.ErrorPages) == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "ERROR PAGES SERVED TO BOTS")
	if len(summary.ErrorPages) == 0 {
		sb.WriteString("  No errors served to bots\n\n")
		return
	}

	for _, page := range summary.ErrorPages {
		sb.WriteString(w.printer.Sprintf("  [%d errors] %s\n", page.ErrorCount, page.URL))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeTraps(sb *strings.Builder, summary *model.AnalysisSummary) {
	w.section(sb, "CRAWL TRAPS")

	if len(summary.TrapFindings) == 0 {
		sb.WriteString("  No crawl traps detected\n\n")
		return
	}

	for _, finding := range summary.TrapFindings {
		sb.WriteString(w.printer.Sprintf("  [%s] %s\n", finding.Severity.String(), finding.Pattern))
		sb.WriteString(w.printer.Sprintf("        crawls: %d, baseline: %.1f, deviation: %.1fx\n",
			finding.CrawlCount, finding.Baseline, finding.Deviation))
		for _, example := range finding.ExampleURLs {
			sb.WriteString(fmt.Sprintf("        e.g. %s\n", example))
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeHourly(sb *strings.Builder, summary *model.AnalysisSummary) {
	if len(summary.Hourly) == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "HOURLY ACTIVITY")
	for _, hour := range summary.Hourly {
		sb.WriteString(w.printer.Sprintf("  %s  %8d\n", hour.Bucket, hour.Total))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, summary *model.AnalysisSummary) {
	if len(summary.ParseFailures) == 0 && !w.showEmpty {
		return
	}

	w.section(sb, "PARSE FAILURES")
	for _, failure := range summary.ParseFailures {
		sb.WriteString(fmt.Sprintf("  line %d [%s]: %s\n",
			failure.LineNumber, failure.Reason.String(), truncate(failure.Line, 80)))
	}
	sb.WriteString("\n")
}

type reasonCount struct {
	reason model.FailureReason
	count  int64
}

// sortedReasons returns failure counts in stable enum order.
func sortedReasons(counts map[model.FailureReason]int64) []reasonCount {
	order := []model.FailureReason{
		model.FailureFieldCountMismatch,
		model.FailureTimestampUnparseable,
		model.FailureStatusNotInteger,
	}
	var out []reasonCount
	for _, reason := range order {
		if n, ok := counts[reason]; ok {
			out = append(out, reasonCount{reason: reason, count: n})
		}
	}
	return out
}

// truncate shortens s to max characters with an ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
