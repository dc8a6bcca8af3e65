package report

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/petersawicki/seo-log-analyzer/internal/model"
)

// CSVWriter outputs summaries as CSV sections for spreadsheet import
// and downstream analysis. Each section starts with a "# name" comment
// row followed by its own header row.
//
// Design decision: One file with commented sections rather than one
// file per view keeps the writer interchangeable with the others: a
// Writer produces exactly one output stream. encoding/csv from the
// standard library is used because CSV here is plain tabular output
// with no schema mapping, which struct-tag CSV libraries exist to
// solve.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary's tabular views as CSV sections.
func (w *CSVWriter) Write(summary *model.AnalysisSummary) (int, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	sections := []func(*csv.Writer, *model.AnalysisSummary) error{
		writeFamilyCSV,
		writeURLCSV,
		writeHourlyCSV,
		writeTrapCSV,
	}
	for _, section := range sections {
		if err := section(cw, summary); err != nil {
			return 0, err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

func writeFamilyCSV(cw *csv.Writer, summary *model.AnalysisSummary) error {
	if err := cw.Write([]string{"# families"}); err != nil {
		return err
	}
	if err := cw.Write([]string{
		"family", "requests", "share_percent", "bytes",
		"errors", "error_rate_percent", "2xx", "3xx", "4xx", "5xx",
	}); err != nil {
		return err
	}
	for _, family := range summary.Families {
		row := []string{
			family.Family.String(),
			strconv.FormatInt(family.Requests, 10),
			formatFloat(family.SharePercent),
			strconv.FormatInt(family.Bytes, 10),
			strconv.FormatInt(family.Errors, 10),
			formatFloat(family.ErrorRatePercent),
			strconv.FormatInt(family.StatusClasses.Success, 10),
			strconv.FormatInt(family.StatusClasses.Redirect, 10),
			strconv.FormatInt(family.StatusClasses.ClientError, 10),
			strconv.FormatInt(family.StatusClasses.ServerError, 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeURLCSV(cw *csv.Writer, summary *model.AnalysisSummary) error {
	if err := cw.Write([]string{"# top_urls"}); err != nil {
		return err
	}
	if err := cw.Write([]string{
		"url", "count", "bot_count", "bot_share_percent",
		"mean_response_ms", "p95_response_ms", "max_response_ms",
	}); err != nil {
		return err
	}
	for _, url := range summary.TopURLs {
		row := []string{
			url.URL,
			strconv.FormatInt(url.Count, 10),
			strconv.FormatInt(url.BotCount, 10),
			formatFloat(url.BotSharePercent),
			formatFloat(url.MeanResponseMs),
			formatFloat(url.P95ResponseMs),
			formatFloat(url.MaxResponseMs),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeHourlyCSV(cw *csv.Writer, summary *model.AnalysisSummary) error {
	if err := cw.Write([]string{"# hourly"}); err != nil {
		return err
	}
	if err := cw.Write([]string{"bucket", "total", "googlebot", "bingbot"}); err != nil {
		return err
	}
	for _, hour := range summary.Hourly {
		row := []string{
			hour.Bucket,
			strconv.FormatInt(hour.Total, 10),
			strconv.FormatInt(hour.ByFamily[model.FamilyGooglebot], 10),
			strconv.FormatInt(hour.ByFamily[model.FamilyBingbot], 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeTrapCSV(cw *csv.Writer, summary *model.AnalysisSummary) error {
	if err := cw.Write([]string{"# crawl_traps"}); err != nil {
		return err
	}
	if err := cw.Write([]string{
		"pattern", "crawl_count", "baseline", "deviation", "severity",
	}); err != nil {
		return err
	}
	for _, finding := range summary.TrapFindings {
		row := []string{
			finding.Pattern,
			strconv.FormatInt(finding.CrawlCount, 10),
			formatFloat(finding.Baseline),
			formatFloat(finding.Deviation),
			finding.Severity.String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
