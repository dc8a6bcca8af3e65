package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoSource is returned when no access-log source is specified.
	// At least one file path (or "-" for stdin) must be given.
	ErrNoSource = errors.New("no source specified: provide at least one access-log file path")

	// ErrInvalidFormat is returned when the explicit log format is not
	// one of the supported layouts.
	ErrInvalidFormat = errors.New("invalid log format: must be common, combined, or combined+timing")

	// ErrInvalidProbeLines is returned when the probe line count is
	// negative. Use 0 to keep the default.
	ErrInvalidProbeLines = errors.New("invalid probe lines: must be non-negative")

	// ErrInvalidSlowPageThreshold is returned when the slow-page
	// threshold is not positive. A zero threshold would mark every URL
	// as slow.
	ErrInvalidSlowPageThreshold = errors.New("invalid slow page threshold: must be positive")

	// ErrInvalidTrapMultiplier is returned when the trap multiplier is
	// 1 or less. A multiplier at or below 1 would flag URLs crawled at
	// or below the site baseline.
	ErrInvalidTrapMultiplier = errors.New("invalid trap multiplier: must be greater than 1")

	// ErrInvalidTrapPercentile is returned when the trap baseline
	// percentile is outside (0, 100). Use 0 for the median baseline.
	ErrInvalidTrapPercentile = errors.New("invalid trap percentile: must be between 0 and 100")

	// ErrInvalidBatchSize is returned when the batch size is not
	// positive. A batch size of zero would mean no concurrent analysis,
	// effectively stopping the processing.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when more than one of
	// --json, --markdown, and --csv is specified. Only one output
	// format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json, --markdown, and --csv cannot be combined")
)
