package parser

import (
	"errors"
	"fmt"
	"regexp"
)

// Format identifies one supported access-log field layout.
//
// Design decision: Format is detected once per source, not per line.
// Probing per line would let a source silently degrade (a few lines
// parsed as common, others as combined); rejecting the source up front
// when no layout fits is the safer failure mode.
type Format int

const (
	// FormatUnknown means detection has not run or failed.
	FormatUnknown Format = iota

	// FormatCommon is the Apache Common Log Format:
	// host ident authuser [date] "request" status bytes
	FormatCommon

	// FormatCombined is the Apache/nginx Combined Log Format: common
	// plus quoted referrer and user-agent fields.
	FormatCombined

	// FormatCombinedTiming is the combined layout with a trailing
	// request-time field in seconds, as produced by nginx log_format
	// definitions ending in $request_time.
	FormatCombinedTiming
)

// String returns a short name for the format.
func (f Format) String() string {
	switch f {
	case FormatCommon:
		return "common"
	case FormatCombined:
		return "combined"
	case FormatCombinedTiming:
		return "combined+timing"
	default:
		return "unknown"
	}
}

// ParseFormat converts a format name (as produced by String) back to
// its Format value. The empty string maps to FormatUnknown, meaning
// the format should be detected by probing.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "", "unknown":
		return FormatUnknown, nil
	case "common":
		return FormatCommon, nil
	case "combined":
		return FormatCombined, nil
	case "combined+timing":
		return FormatCombinedTiming, nil
	default:
		return FormatUnknown, fmt.Errorf("unknown log format %q: expected common, combined, or combined+timing", name)
	}
}

// ErrFormatUndetected is returned when no supported layout matches the
// probed lines with sufficient confidence. The source is rejected up
// front rather than degrading per line.
var ErrFormatUndetected = errors.New("log format not detected: no supported layout matched the probed lines")

// Layout regexes. Status and bytes are captured as \S+ rather than \d+
// so that a line with the right shape but a non-numeric field reaches
// the dedicated checks (STATUS_NOT_INTEGER) instead of failing the
// whole match.
var (
	commonRe = regexp.MustCompile(
		`^(\S+) (\S+) (\S+) \[([^\]]+)\] "([^"]*)" (\S+) (\S+)$`)

	combinedRe = regexp.MustCompile(
		`^(\S+) (\S+) (\S+) \[([^\]]+)\] "([^"]*)" (\S+) (\S+) "([^"]*)" "([^"]*)"$`)

	combinedTimingRe = regexp.MustCompile(
		`^(\S+) (\S+) (\S+) \[([^\]]+)\] "([^"]*)" (\S+) (\S+) "([^"]*)" "([^"]*)" (\S+)$`)
)

// layoutFor returns the compiled regex for a format.
func layoutFor(f Format) *regexp.Regexp {
	switch f {
	case FormatCommon:
		return commonRe
	case FormatCombined:
		return combinedRe
	case FormatCombinedTiming:
		return combinedTimingRe
	default:
		return nil
	}
}

// DefaultProbeLines is how many non-empty lines the stream builder
// feeds into Detect by default.
const DefaultProbeLines = 20

// DefaultConfidence is the minimum fraction of probed lines that must
// match a layout before it is locked for the source.
const DefaultConfidence = 0.8

// DetectOption configures format detection.
type DetectOption func(*detector)

// WithConfidence overrides the minimum match ratio required to lock a
// format. Values outside (0, 1] fall back to the default.
func WithConfidence(ratio float64) DetectOption {
	return func(d *detector) {
		if ratio > 0 && ratio <= 1 {
			d.confidence = ratio
		}
	}
}

type detector struct {
	confidence float64
}

// Detect probes the given sample lines against the supported layouts
// and returns the format to lock for the source. Layouts are tried from
// most to least specific so that a combined log is never mistaken for a
// common log with trailing junk.
//
// Returns ErrFormatUndetected when no layout reaches the confidence
// threshold, or when the sample is empty.
func Detect(sample []string, opts ...DetectOption) (Format, error) {
	d := &detector{confidence: DefaultConfidence}
	for _, opt := range opts {
		opt(d)
	}

	nonEmpty := 0
	for _, line := range sample {
		if line != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return FormatUnknown, ErrFormatUndetected
	}

	// Most specific first: every combined+timing line also matches the
	// combined regex minus the trailing field, so order matters.
	for _, f := range []Format{FormatCombinedTiming, FormatCombined, FormatCommon} {
		re := layoutFor(f)
		matched := 0
		for _, line := range sample {
			if line == "" {
				continue
			}
			if re.MatchString(line) {
				matched++
			}
		}
		if float64(matched)/float64(nonEmpty) >= d.confidence {
			return f, nil
		}
	}

	return FormatUnknown, ErrFormatUndetected
}
