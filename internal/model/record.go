package model

import (
	"strconv"
	"time"
)

// LogRecord is one parsed access-log line.
//
// A LogRecord is a plain value and is never modified after the parser
// constructs it. Malformed lines never produce a partial record; they
// produce a ParseFailure instead.
type LogRecord struct {
	// Timestamp is the request instant, carrying the timezone offset
	// exactly as it appeared in the log line.
	Timestamp time.Time `json:"timestamp"`

	// ClientAddr is the textual client IP (v4 or v6). It is kept as
	// written; no validation beyond syntactic form is performed.
	ClientAddr string `json:"client_addr"`

	// Method is the HTTP method token (GET, POST, ...).
	Method string `json:"method"`

	// Path is the requested URL path without the query string.
	Path string `json:"path"`

	// Query is the raw query string, without the leading "?".
	// Empty when the request had none.
	Query string `json:"query,omitempty"`

	// StatusCode is the HTTP status code.
	StatusCode int `json:"status_code"`

	// ResponseBytes is the response body size. Logs that record "-"
	// yield zero.
	ResponseBytes int64 `json:"response_bytes"`

	// ResponseTimeMs is the upstream response time in milliseconds.
	// Only some log formats carry it; check HasResponseTime.
	ResponseTimeMs float64 `json:"response_time_ms,omitempty"`

	// HasResponseTime reports whether the source format carried a
	// response-time field for this record.
	HasResponseTime bool `json:"has_response_time,omitempty"`

	// UserAgent is the raw user-agent string.
	UserAgent string `json:"user_agent"`

	// Referrer is the referrer header value, empty when the log
	// recorded "-".
	Referrer string `json:"referrer,omitempty"`
}

// URL returns the path with the query string re-attached, matching the
// request target as it appeared on the wire.
func (r LogRecord) URL() string {
	if r.Query == "" {
		return r.Path
	}
	return r.Path + "?" + r.Query
}

// IsError reports whether the record's status code is a 4xx or 5xx.
func (r LogRecord) IsError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 600
}

// FailureReason identifies why a log line could not be parsed.
type FailureReason int

const (
	// FailureFieldCountMismatch means the line did not fit the locked
	// field layout for the source.
	FailureFieldCountMismatch FailureReason = iota

	// FailureTimestampUnparseable means the bracketed timestamp did not
	// match the expected offset-suffixed layout. Ambiguous timestamps
	// (e.g. missing timezone) are rejected, never guessed.
	FailureTimestampUnparseable

	// FailureStatusNotInteger means the status field was present but
	// not an integer.
	FailureStatusNotInteger
)

// String returns the stable name of the failure reason. These names are
// part of the export format.
func (f FailureReason) String() string {
	switch f {
	case FailureFieldCountMismatch:
		return "FIELD_COUNT_MISMATCH"
	case FailureTimestampUnparseable:
		return "TIMESTAMP_UNPARSEABLE"
	case FailureStatusNotInteger:
		return "STATUS_NOT_INTEGER"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler so reasons serialize as
// their names in JSON values and map keys.
func (f FailureReason) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *FailureReason) UnmarshalText(text []byte) error {
	switch string(text) {
	case "FIELD_COUNT_MISMATCH":
		*f = FailureFieldCountMismatch
	case "TIMESTAMP_UNPARSEABLE":
		*f = FailureTimestampUnparseable
	case "STATUS_NOT_INTEGER":
		*f = FailureStatusNotInteger
	default:
		return &UnknownEnumError{Type: "FailureReason", Value: string(text)}
	}
	return nil
}

// ParseFailure records a line that could not be parsed. Failures are
// collected as diagnostics, never raised; a single malformed line must
// never abort a run.
type ParseFailure struct {
	// LineNumber is the 1-based position of the line in its source.
	LineNumber int `json:"line_number"`

	// Line is the raw text of the failed line.
	Line string `json:"line"`

	// Reason identifies which check rejected the line.
	Reason FailureReason `json:"reason"`
}

// Error implements the error interface so a ParseFailure can travel as
// an error value where callers prefer that shape.
func (p *ParseFailure) Error() string {
	return "parse failure at line " + strconv.Itoa(p.LineNumber) + ": " + p.Reason.String()
}
