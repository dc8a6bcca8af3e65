package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/petersawicki/seo-log-analyzer/internal/model"
)

// timestampLayout is the offset-suffixed timestamp access logs use,
// e.g. "01/Jan/2024:10:15:00 +0000". The offset is mandatory; a
// timestamp without one is ambiguous and is rejected rather than
// guessed at.
const timestampLayout = "02/Jan/2006:15:04:05 -0700"

// fieldPlaceholder is the value access logs write for absent fields.
const fieldPlaceholder = "-"

// LineParser parses lines against one locked format.
//
// A LineParser is safe for concurrent use: it holds only the compiled
// layout and never mutates state.
type LineParser struct {
	format Format
}

// New creates a LineParser locked to the given format.
func New(format Format) (*LineParser, error) {
	if layoutFor(format) == nil {
		return nil, fmt.Errorf("unsupported log format %v", format)
	}
	return &LineParser{format: format}, nil
}

// Format returns the locked format.
func (p *LineParser) Format() Format {
	return p.format
}

// Parse converts one raw line into a LogRecord or a ParseFailure.
// Exactly one of the results is non-zero: a failure never carries a
// partial record, and a record never carries a failure.
//
// The returned failure has LineNumber zero; the stream builder fills it
// in, since only the stream knows the line's position in its source.
func (p *LineParser) Parse(raw string) (model.LogRecord, *model.ParseFailure) {
	match := layoutFor(p.format).FindStringSubmatch(raw)
	if match == nil {
		return model.LogRecord{}, &model.ParseFailure{Line: raw, Reason: model.FailureFieldCountMismatch}
	}

	// Field positions shared by all supported layouts:
	// 1 host, 2 ident, 3 authuser, 4 timestamp, 5 request, 6 status, 7 bytes.
	ts, err := time.Parse(timestampLayout, match[4])
	if err != nil {
		return model.LogRecord{}, &model.ParseFailure{Line: raw, Reason: model.FailureTimestampUnparseable}
	}

	status, err := strconv.Atoi(match[6])
	if err != nil {
		return model.LogRecord{}, &model.ParseFailure{Line: raw, Reason: model.FailureStatusNotInteger}
	}

	method, path, query, ok := splitRequestLine(match[5])
	if !ok {
		return model.LogRecord{}, &model.ParseFailure{Line: raw, Reason: model.FailureFieldCountMismatch}
	}

	bytes, ok := parseBytes(match[7])
	if !ok {
		return model.LogRecord{}, &model.ParseFailure{Line: raw, Reason: model.FailureFieldCountMismatch}
	}

	record := model.LogRecord{
		Timestamp:     ts,
		ClientAddr:    match[1],
		Method:        method,
		Path:          path,
		Query:         query,
		StatusCode:    status,
		ResponseBytes: bytes,
	}

	switch p.format {
	case FormatCombined, FormatCombinedTiming:
		if ref := match[8]; ref != fieldPlaceholder {
			record.Referrer = ref
		}
		record.UserAgent = match[9]
	case FormatCommon, FormatUnknown:
		// Common format carries neither referrer nor user agent.
	}

	if p.format == FormatCombinedTiming {
		seconds, ok := parseRequestTime(match[10])
		if !ok {
			return model.LogRecord{}, &model.ParseFailure{Line: raw, Reason: model.FailureFieldCountMismatch}
		}
		if seconds >= 0 {
			record.ResponseTimeMs = seconds * 1000
			record.HasResponseTime = true
		}
	}

	return record, nil
}

// splitRequestLine splits `GET /path?q=1 HTTP/1.1` into its parts. The
// protocol token is optional (HTTP/0.9 lines omit it), but method and
// target are not.
func splitRequestLine(request string) (method, path, query string, ok bool) {
	fields := strings.Fields(request)
	if len(fields) < 2 {
		return "", "", "", false
	}

	target := fields[1]
	path, query, _ = strings.Cut(target, "?")
	return fields[0], path, query, true
}

// parseBytes converts the response-size field. "-" means the log did
// not record a size and yields zero. Negative sizes violate the layout.
func parseBytes(field string) (int64, bool) {
	if field == fieldPlaceholder {
		return 0, true
	}
	n, err := strconv.ParseInt(field, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseRequestTime converts the nginx $request_time field (seconds with
// millisecond resolution). "-" means no measurement and is reported as
// a negative sentinel so the caller can skip it.
func parseRequestTime(field string) (float64, bool) {
	if field == fieldPlaceholder {
		return -1, true
	}
	seconds, err := strconv.ParseFloat(field, 64)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return seconds, true
}
