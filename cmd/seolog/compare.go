package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/petersawicki/seo-log-analyzer/internal/config"
	"github.com/petersawicki/seo-log-analyzer/internal/database"
	"github.com/petersawicki/seo-log-analyzer/internal/model"
)

// Constants for trend direction and summary messages.
const (
	trendWorsened  = "worsened"
	trendImproved  = "improved"
	trendUnchanged = "unchanged"
)

// NewCompareCmd creates the compare command.
// This command compares analysis runs stored in the history database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [source]",
		Short: "Compare analysis runs with historical data",
		Long: `Compare displays differences between the current and previous analysis runs.

This command retrieves historical runs from the database and shows:
- Changes in crawl budget per bot family
- Changes in bot share and error rates
- Crawl traps that appeared or disappeared since the last run

The comparison requires at least two runs in the database for the specified
source. Use 'seolog analyze' to analyze logs and save results.

Examples:
  # Compare the latest two runs for a source
  seolog compare access.log

  # List all run history for a source
  seolog compare --list access.log

  # Compare with a specific historical run by ID
  seolog compare --with-run-id 4f9f1b2a access.log

  # Compare with the first run after a specific date
  seolog compare --since "2026-01-01" access.log

  # Output comparison in JSON format
  seolog compare --json access.log

  # List all analyzed sources in the database
  seolog compare --list-sources`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List run history for the specified source")
	cmd.Flags().BoolP("list-sources", "L", false,
		"List all analyzed sources in the database")

	// Comparison target flags
	cmd.Flags().StringP("with-run-id", "i", "",
		"Compare with a specific run by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first run after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	// Handle --list-sources flag first (requires database but no source)
	listSources, err := cmd.Flags().GetBool("list-sources")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database (unless --list-sources)
	var source string
	if !listSources {
		if len(args) == 0 {
			return errors.New("source is required (use --list-sources to see available sources)")
		}
		source = args[0]
	}

	// Use XDG data directory for the database
	dbDir := config.XDGDataDir()

	// Open database
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Handle --list-sources flag
	if listSources {
		return listAnalyzedSources(ctx, db)
	}

	// Handle --list flag
	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listRunHistory(ctx, db, source)
	}

	// Get output format flag
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	// Get comparison target flags
	withRunID, err := cmd.Flags().GetString("with-run-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}

	// Perform comparison
	return runComparison(ctx, db, source, withRunID, sinceDate, jsonOutput)
}

// listAnalyzedSources lists all sources that have runs in the database.
func listAnalyzedSources(ctx context.Context, db *database.HistoryDB) error {
	sources, err := db.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if len(sources) == 0 {
		fmt.Println("No analyzed sources found in the database.")
		fmt.Println("\nUse 'seolog analyze <log-file>' to analyze an access log.")
		return nil
	}

	fmt.Printf("Analyzed sources (%d):\n\n", len(sources))
	for _, s := range sources {
		fmt.Printf("  • %s\n", s)
	}
	fmt.Println("\nUse 'seolog compare --list <source>' to see run history for a source.")

	return nil
}

// listRunHistory lists all runs for a specific source.
func listRunHistory(ctx context.Context, db *database.HistoryDB, source string) error {
	runs, err := db.GetRunHistory(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Printf("No run history found for %s\n", source)
		fmt.Println("\nUse 'seolog analyze' to analyze this source.")
		return nil
	}

	fmt.Printf("Run history for %s (%d runs):\n\n", source, len(runs))
	fmt.Printf("  %-36s  %-20s  %-10s  %-10s  %-8s  %s\n",
		"ID", "Date", "Records", "Bot reqs", "Bot %", "Traps")
	fmt.Println("  " + strings.Repeat("-", 100))

	for _, meta := range runs {
		fmt.Printf("  %-36s  %-20s  %-10d  %-10d  %-8.1f  %d\n",
			meta.ID,
			meta.AnalyzedAt.Format("2006-01-02 15:04:05"),
			meta.RecordCount,
			meta.BotRequests,
			meta.BotSharePercent,
			meta.TrapCount,
		)
	}

	fmt.Println("\nUse 'seolog compare <source>' to compare the latest two runs.")
	fmt.Println("Use 'seolog compare --with-run-id <id> <source>' to compare with a specific run.")

	return nil
}

// runComparison performs the actual comparison between analysis runs.
func runComparison(ctx context.Context, db *database.HistoryDB, source, withRunID, sinceDate string, jsonOutput bool) error {
	// Get the run history (newest first)
	runs, err := db.GetRunHistory(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		return fmt.Errorf("no run history found for %s", source)
	}

	if len(runs) < 2 && withRunID == "" && sinceDate == "" {
		return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	}

	// Latest run is always the current one
	current, err := db.GetRunByID(ctx, runs[0].ID)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", runs[0].ID, err)
	}
	if current == nil {
		return fmt.Errorf("run %s not found", runs[0].ID)
	}

	var previousID string
	switch {
	case withRunID != "":
		// Validate that the run ID belongs to the same source
		found := false
		for _, meta := range runs {
			if meta.ID == withRunID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("run %s not found for source %s", withRunID, source)
		}
		previousID = withRunID
	case sinceDate != "":
		parsedDate, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Runs are sorted newest first, so iterate in reverse to find
		// the oldest run at or after the date.
		for i := len(runs) - 1; i >= 0; i-- {
			if !runs[i].AnalyzedAt.Before(parsedDate) {
				previousID = runs[i].ID
				break
			}
		}
		if previousID == "" {
			return fmt.Errorf("no runs found since %s", sinceDate)
		}
		if previousID == runs[0].ID {
			return fmt.Errorf("only one run found since %s; at least 2 runs are required for comparison", sinceDate)
		}
	default:
		// Default: compare with the previous run
		previousID = runs[1].ID
	}

	previous, err := db.GetRunByID(ctx, previousID)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", previousID, err)
	}
	if previous == nil {
		return fmt.Errorf("run %s not found", previousID)
	}

	comparison := compareRuns(previous, current)

	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	return outputComparisonText(comparison)
}

// ComparisonResult holds the result of comparing two analysis runs.
type ComparisonResult struct {
	// Source is the analyzed log source.
	Source string `json:"source"`

	// PreviousRun contains headline numbers of the previous run.
	PreviousRun RunOverview `json:"previous_run"`

	// CurrentRun contains headline numbers of the current run.
	CurrentRun RunOverview `json:"current_run"`

	// FamilyChanges lists per-family request deltas, largest absolute
	// change first.
	FamilyChanges []FamilyChange `json:"family_changes,omitempty"`

	// NewTraps contains crawl traps present now but not before.
	NewTraps []model.CrawlTrapFinding `json:"new_traps,omitempty"`

	// ResolvedTraps contains crawl traps present before but not now.
	ResolvedTraps []model.CrawlTrapFinding `json:"resolved_traps,omitempty"`

	// BotShareDelta is the change in bot share, in percentage points.
	BotShareDelta float64 `json:"bot_share_delta"`

	// Trend is "improved", "worsened", or "unchanged", judged on crawl
	// trap severity.
	Trend string `json:"trend"`
}

// RunOverview contains headline numbers of a run for comparison display.
type RunOverview struct {
	// AnalyzedAt is when the run finished.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// RecordCount is the number of parsed records.
	RecordCount int64 `json:"record_count"`

	// BotRequests is the number of requests from declared bots.
	BotRequests int64 `json:"bot_requests"`

	// BotSharePercent is the bot share of all requests.
	BotSharePercent float64 `json:"bot_share_percent"`

	// TrapCount is the number of flagged crawl traps.
	TrapCount int `json:"trap_count"`
}

// FamilyChange describes the request delta for one bot family.
type FamilyChange struct {
	// Family is the bot family name.
	Family model.BotFamily `json:"family"`

	// PreviousRequests and CurrentRequests are the per-run request counts.
	PreviousRequests int64 `json:"previous_requests"`
	CurrentRequests  int64 `json:"current_requests"`

	// Delta is CurrentRequests - PreviousRequests.
	Delta int64 `json:"delta"`
}

// compareRuns compares two analysis summaries and generates a
// comparison result.
func compareRuns(previous, current *model.AnalysisSummary) *ComparisonResult {
	result := &ComparisonResult{
		Source:      current.Source,
		PreviousRun: runOverview(previous),
		CurrentRun:  runOverview(current),
	}
	result.BotShareDelta = current.BotSharePercent - previous.BotSharePercent

	// Per-family request deltas
	previousRequests := make(map[model.BotFamily]int64, len(previous.Families))
	for _, f := range previous.Families {
		previousRequests[f.Family] = f.Requests
	}
	seen := make(map[model.BotFamily]bool, len(current.Families))
	for _, f := range current.Families {
		seen[f.Family] = true
		result.FamilyChanges = append(result.FamilyChanges, FamilyChange{
			Family:           f.Family,
			PreviousRequests: previousRequests[f.Family],
			CurrentRequests:  f.Requests,
			Delta:            f.Requests - previousRequests[f.Family],
		})
	}
	for _, f := range previous.Families {
		if !seen[f.Family] {
			result.FamilyChanges = append(result.FamilyChanges, FamilyChange{
				Family:           f.Family,
				PreviousRequests: f.Requests,
				Delta:            -f.Requests,
			})
		}
	}
	sort.Slice(result.FamilyChanges, func(i, j int) bool {
		di, dj := abs64(result.FamilyChanges[i].Delta), abs64(result.FamilyChanges[j].Delta)
		if di != dj {
			return di > dj
		}
		return result.FamilyChanges[i].Family < result.FamilyChanges[j].Family
	})

	// Trap diffs, keyed on the normalized pattern
	previousTraps := make(map[string]model.CrawlTrapFinding, len(previous.TrapFindings))
	for _, f := range previous.TrapFindings {
		previousTraps[f.Pattern] = f
	}
	currentTraps := make(map[string]model.CrawlTrapFinding, len(current.TrapFindings))
	for _, f := range current.TrapFindings {
		currentTraps[f.Pattern] = f
		if _, exists := previousTraps[f.Pattern]; !exists {
			result.NewTraps = append(result.NewTraps, f)
		}
	}
	for _, f := range previous.TrapFindings {
		if _, exists := currentTraps[f.Pattern]; !exists {
			result.ResolvedTraps = append(result.ResolvedTraps, f)
		}
	}

	result.Trend = trapTrend(previous.TrapFindings, current.TrapFindings)
	return result
}

// runOverview extracts the headline numbers from a summary.
func runOverview(s *model.AnalysisSummary) RunOverview {
	return RunOverview{
		AnalyzedAt:      s.AnalyzedAt,
		RecordCount:     s.RecordCount,
		BotRequests:     s.BotRequests,
		BotSharePercent: s.BotSharePercent,
		TrapCount:       len(s.TrapFindings),
	}
}

// trapTrend judges the overall direction on weighted trap severity.
// High severity traps waste far more crawl budget than low ones.
func trapTrend(previous, current []model.CrawlTrapFinding) string {
	score := func(findings []model.CrawlTrapFinding) int {
		total := 0
		for _, f := range findings {
			if f.Severity == model.TrapSeverityHigh {
				total += 10
			} else {
				total++
			}
		}
		return total
	}

	previousScore, currentScore := score(previous), score(current)
	switch {
	case currentScore < previousScore:
		return trendImproved
	case currentScore > previousScore:
		return trendWorsened
	default:
		return trendUnchanged
	}
}

// abs64 returns the absolute value of an int64.
func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonText outputs the comparison result in human-readable
// text format.
func outputComparisonText(result *ComparisonResult) error {
	fmt.Printf("Run Comparison: %s\n", result.Source)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nTrend: %s\n", formatTrend(result.Trend))

	fmt.Printf("\nPrevious run: %s\n", result.PreviousRun.AnalyzedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Current run:  %s\n", result.CurrentRun.AnalyzedAt.Format("2006-01-02 15:04:05"))

	fmt.Println("\nHeadline numbers:")
	fmt.Printf("  %-14s  %-12s  %-12s  %s\n", "Metric", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 50))
	fmt.Printf("  %-14s  %-12d  %-12d  %s\n", "Records",
		result.PreviousRun.RecordCount, result.CurrentRun.RecordCount,
		formatDelta(result.CurrentRun.RecordCount-result.PreviousRun.RecordCount))
	fmt.Printf("  %-14s  %-12d  %-12d  %s\n", "Bot requests",
		result.PreviousRun.BotRequests, result.CurrentRun.BotRequests,
		formatDelta(result.CurrentRun.BotRequests-result.PreviousRun.BotRequests))
	fmt.Printf("  %-14s  %-12.1f  %-12.1f  %+.1f pt\n", "Bot share %",
		result.PreviousRun.BotSharePercent, result.CurrentRun.BotSharePercent,
		result.BotShareDelta)
	fmt.Printf("  %-14s  %-12d  %-12d  %s\n", "Crawl traps",
		result.PreviousRun.TrapCount, result.CurrentRun.TrapCount,
		formatDelta(int64(result.CurrentRun.TrapCount-result.PreviousRun.TrapCount)))

	if len(result.FamilyChanges) > 0 {
		fmt.Println("\nCrawl budget by family:")
		for _, fc := range result.FamilyChanges {
			fmt.Printf("  %-20s  %8d -> %-8d  (%s)\n",
				fc.Family, fc.PreviousRequests, fc.CurrentRequests, formatDelta(fc.Delta))
		}
	}

	if len(result.NewTraps) > 0 {
		fmt.Printf("\nNew crawl traps (%d):\n", len(result.NewTraps))
		for _, f := range result.NewTraps {
			fmt.Printf("  [+] [%s] %s (%d crawls, %.1fx baseline)\n",
				f.Severity, f.Pattern, f.CrawlCount, f.Deviation)
		}
	}

	if len(result.ResolvedTraps) > 0 {
		fmt.Printf("\nResolved crawl traps (%d):\n", len(result.ResolvedTraps))
		for _, f := range result.ResolvedTraps {
			fmt.Printf("  [-] [%s] %s\n", f.Severity, f.Pattern)
		}
	}

	return nil
}

// formatTrend formats the trend direction for display.
func formatTrend(trend string) string {
	switch trend {
	case trendImproved:
		return "IMPROVED (less crawl budget wasted)"
	case trendWorsened:
		return "WORSENED (more crawl budget wasted)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int64) string {
	if delta > 0 {
		return "+" + strconv.FormatInt(delta, 10)
	}
	return strconv.FormatInt(delta, 10)
}
