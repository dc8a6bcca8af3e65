package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen to produce useful reports on typical
// production access logs without any tuning.
const (
	// DefaultBatchSize of 4 concurrent sources balances throughput with
	// memory usage. Each source holds its aggregation state in memory
	// until merged, so very high values trade speed for peak memory.
	DefaultBatchSize = 4

	// DefaultProbeLines is how many non-empty lines are sampled for log
	// format detection. 20 lines is enough to distinguish common from
	// combined layouts even when a few lines are malformed.
	DefaultProbeLines = 20

	// DefaultSlowPageThresholdMs marks a URL as slow when its mean
	// response time exceeds this many milliseconds. One second is the
	// point where crawl efficiency measurably degrades.
	DefaultSlowPageThresholdMs = 1000.0

	// DefaultTrapMultiplier flags a URL pattern as a crawl trap when
	// its crawl count exceeds the site baseline by this factor. 5x is
	// conservative enough to avoid flagging genuinely popular pages.
	DefaultTrapMultiplier = 5.0

	// DefaultTopURLLimit caps the top-crawled-URLs view in reports.
	DefaultTopURLLimit = 20

	// DefaultErrorPageLimit caps the error-pages view in reports.
	DefaultErrorPageLimit = 20

	// AppName is the application name used for XDG directory paths.
	AppName = "seolog"
)

// Config holds all configuration options for the analyzer.
// This struct is designed to be populated from CLI flags and passed
// through the application via dependency injection rather than global
// state.
//
// Design decision: We use a single flat struct instead of nested
// structs (e.g., StreamConfig, ReportConfig) for simplicity. The
// number of options is manageable, and nesting would add complexity
// without significant benefit. If the configuration grows
// significantly, consider refactoring into sub-structs.
type Config struct {
	// Sources is the list of access-log file paths to analyze.
	// Must contain at least one path. "-" reads from standard input.
	Sources []string

	// Format overrides log format detection when non-empty.
	// Accepted values: "common", "combined", "combined+timing".
	// When empty, the format is detected by probing each source.
	Format string

	// ProbeLines is the number of non-empty lines sampled for format
	// detection. A value of 0 means use the default (DefaultProbeLines).
	ProbeLines int

	// SlowPageThresholdMs is the mean response time, in milliseconds,
	// above which a URL appears in the slow-pages view.
	SlowPageThresholdMs float64

	// TrapMultiplier is the factor above the site baseline at which a
	// URL pattern is flagged as a crawl trap.
	TrapMultiplier float64

	// TrapPercentile switches the trap baseline from the median to a
	// nearest-rank percentile of the per-pattern crawl distribution.
	// A value of 0 keeps the median baseline. Must be in (0, 100).
	TrapPercentile float64

	// TopURLLimit caps the top-crawled-URLs view in reports.
	TopURLLimit int

	// ErrorPageLimit caps the error-pages view in reports.
	ErrorPageLimit int

	// BatchSize is the number of sources analyzed concurrently when
	// processing multiple log files. Higher values increase throughput
	// but hold more aggregation state in memory at once.
	BatchSize int

	// Merge combines all sources into a single merged report in
	// addition to the per-source reports. Only meaningful when more
	// than one source is given.
	Merge bool

	// Verbose enables detailed log output using slog.LevelDebug and
	// expands the human-readable report with hourly activity and
	// per-line parse failures.
	Verbose bool

	// ProfilePath is the path to the YAML profile file.
	// If empty, the tool searches for .seolog in the current directory
	// and then in the user's home directory.
	ProfilePath string

	// Profile holds the site profile loaded from the profile file.
	// This is populated by LoadProfile and used to build the
	// classifier and trap detector.
	Profile *Profile

	// JSONReport enables JSON report output instead of the
	// human-readable format. Mutually exclusive with MarkdownReport
	// and CSVReport.
	JSONReport bool

	// MarkdownReport enables GitHub Flavored Markdown report output
	// with tables, alerts, and pie charts. Mutually exclusive with
	// JSONReport and CSVReport.
	MarkdownReport bool

	// CSVReport enables sectioned CSV report output for spreadsheet
	// import. Mutually exclusive with JSONReport and MarkdownReport.
	CSVReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// DBDir is the directory path for storing the SQLite history
	// database. When set, analysis summaries are saved for historical
	// comparison. When empty, results are not persisted.
	// Defaults to the XDG data directory (~/.local/share/seolog on Linux).
	DBDir string

	// SaveToDB indicates whether to save analysis results to the
	// history database. This is automatically set to true when DBDir
	// is configured.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., thresholds and
// view limits). This also serves as documentation of what the defaults
// are.
func NewConfig() *Config {
	return &Config{
		ProbeLines:          DefaultProbeLines,
		SlowPageThresholdMs: DefaultSlowPageThresholdMs,
		TrapMultiplier:      DefaultTrapMultiplier,
		TopURLLimit:         DefaultTopURLLimit,
		ErrorPageLimit:      DefaultErrorPageLimit,
		BatchSize:           DefaultBatchSize,
	}
}

// XDGDataDir returns the XDG data directory for the analyzer.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/seolog
// On macOS: ~/Library/Application Support/seolog
// On Windows: %LOCALAPPDATA%\seolog
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for the analyzer.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/seolog
// On macOS: ~/Library/Application Support/seolog
// On Windows: %APPDATA%\seolog
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any analysis begins.
//
// We chose to return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one source to analyze
	if len(c.Sources) == 0 {
		return ErrNoSource
	}

	// An explicit format must be one of the supported layouts
	switch c.Format {
	case "", "common", "combined", "combined+timing":
	default:
		return ErrInvalidFormat
	}

	// ProbeLines must be non-negative; zero means use the default
	if c.ProbeLines < 0 {
		return ErrInvalidProbeLines
	}

	// A non-positive threshold would mark every URL as slow
	if c.SlowPageThresholdMs <= 0 {
		return ErrInvalidSlowPageThreshold
	}

	// A multiplier of 1 or less would flag the baseline itself
	if c.TrapMultiplier <= 1 {
		return ErrInvalidTrapMultiplier
	}

	// Percentile of 0 means median; otherwise it must be in (0, 100)
	if c.TrapPercentile < 0 || c.TrapPercentile >= 100 {
		return ErrInvalidTrapPercentile
	}

	// BatchSize must be positive; zero would mean no analysis
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// Report formats are mutually exclusive
	formats := 0
	for _, enabled := range []bool{c.JSONReport, c.MarkdownReport, c.CSVReport} {
		if enabled {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	return nil
}
