package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/petersawicki/seo-log-analyzer/internal/model"
)

// MarkdownWriter outputs summaries in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. Mermaid charts for the crawl-budget distribution
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.AnalysisSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeBudget(md, summary)
	w.writeGooglebot(md, summary)
	w.writeTopURLs(md, summary)
	w.writeSlowPages(md, summary)
	w.writeTraps(md, summary)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.AnalysisSummary) {
	md.H1("Crawl Budget Report")
	md.PlainText("")

	rows := [][]string{
		{"Source", "`" + summary.Source + "`"},
		{"Analyzed", summary.AnalyzedAt.Format("2006-01-02 15:04:05 MST")},
		{"Lines", strconv.FormatInt(summary.TotalLines, 10)},
		{"Records", strconv.FormatInt(summary.RecordCount, 10)},
		{"Parse failures", strconv.FormatInt(summary.ParseFailureCount, 10)},
		{"Status", w.getStatusText(summary)},
	}
	if summary.FirstTimestamp != nil && summary.LastTimestamp != nil {
		rows = append(rows, []string{
			"Log window",
			summary.FirstTimestamp.Format("2006-01-02 15:04") + " – " +
				summary.LastTimestamp.Format("2006-01-02 15:04"),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// getStatusText returns the status text based on run state.
func (w *MarkdownWriter) getStatusText(summary *model.AnalysisSummary) string {
	if summary.SourceExhausted {
		return "⚠️ No valid records"
	}
	return "✅ Complete"
}

// writeBudget writes the crawl-budget section with a family table and
// a pie chart of the request distribution.
func (w *MarkdownWriter) writeBudget(md *markdown.Markdown, summary *model.AnalysisSummary) {
	md.H2("Crawl Budget by Family")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.Families))
	for _, family := range summary.Families {
		rows = append(rows, []string{
			family.Family.String(),
			strconv.FormatInt(family.Requests, 10),
			fmt.Sprintf("%.1f%%", family.SharePercent),
			strconv.FormatInt(family.Errors, 10),
			fmt.Sprintf("%.1f%%", family.ErrorRatePercent),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Family", "Requests", "Share", "Errors", "Error rate"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(summary.Families) > 0 {
		w.writePieChart(md, summary)
	}
}

// writePieChart writes a mermaid pie chart of the request distribution
// by family.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.AnalysisSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Requests by Agent Family"),
		piechart.WithShowData(true),
	)

	for _, family := range summary.Families {
		if family.Requests > 0 {
			chart.LabelAndIntValue(family.Family.String(), uint64(family.Requests))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeGooglebot writes the desktop/mobile device split.
func (w *MarkdownWriter) writeGooglebot(md *markdown.Markdown, summary *model.AnalysisSummary) {
	if summary.Googlebot.Total() == 0 {
		return
	}

	md.H2("Googlebot Device Split")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Device", "Requests"},
		Rows: [][]string{
			{"Desktop", strconv.FormatInt(summary.Googlebot.Desktop, 10)},
			{"Mobile", strconv.FormatInt(summary.Googlebot.Mobile, 10)},
			{"Unspecified", strconv.FormatInt(summary.Googlebot.Unspecified, 10)},
		},
	})
	md.PlainText("")
}

// writeTopURLs writes the most crawled URLs.
func (w *MarkdownWriter) writeTopURLs(md *markdown.Markdown, summary *model.AnalysisSummary) {
	if len(summary.TopURLs) == 0 {
		return
	}

	md.H2("Top Crawled URLs")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.TopURLs))
	for _, url := range summary.TopURLs {
		rows = append(rows, []string{
			"`" + url.URL + "`",
			strconv.FormatInt(url.Count, 10),
			fmt.Sprintf("%.1f%%", url.BotSharePercent),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Requests", "Bot share"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSlowPages writes the slow-page list.
func (w *MarkdownWriter) writeSlowPages(md *markdown.Markdown, summary *model.AnalysisSummary) {
	if len(summary.SlowPages) == 0 {
		return
	}

	md.H2("Slow Pages")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.SlowPages))
	for _, page := range summary.SlowPages {
		rows = append(rows, []string{
			"`" + page.URL + "`",
			fmt.Sprintf("%.0f ms", page.MeanResponseMs),
			fmt.Sprintf("%.0f ms", page.P95ResponseMs),
			fmt.Sprintf("%.0f ms", page.MaxResponseMs),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Mean", "P95", "Max"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeTraps writes the crawl-trap findings with severity alerts.
func (w *MarkdownWriter) writeTraps(md *markdown.Markdown, summary *model.AnalysisSummary) {
	md.H2("Crawl Traps")
	md.PlainText("")

	if len(summary.TrapFindings) == 0 {
		md.PlainText("No crawl traps detected.")
		md.PlainText("")
		return
	}

	high := 0
	for _, finding := range summary.TrapFindings {
		if finding.Severity == model.TrapSeverityHigh {
			high++
		}
	}
	if high > 0 {
		md.Warningf("%d URL pattern(s) are actively draining crawl budget.", high)
		md.PlainText("")
	}

	rows := make([][]string, 0, len(summary.TrapFindings))
	for _, finding := range summary.TrapFindings {
		rows = append(rows, []string{
			"`" + finding.Pattern + "`",
			strconv.FormatInt(finding.CrawlCount, 10),
			fmt.Sprintf("%.1f", finding.Baseline),
			fmt.Sprintf("%.1fx", finding.Deviation),
			finding.Severity.String(),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Pattern", "Crawls", "Baseline", "Deviation", "Severity"},
		Rows:   rows,
	})
	md.PlainText("")
}
