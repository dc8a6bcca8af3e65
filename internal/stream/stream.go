package stream

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/petersawicki/seo-log-analyzer/internal/model"
	"github.com/petersawicki/seo-log-analyzer/internal/parser"
)

const (
	// DefaultFailureLimit caps how many individual parse failures are
	// retained for diagnostics. Counts by reason are never capped.
	DefaultFailureLimit = 100

	// maxLineBytes bounds a single log line. Access-log lines beyond
	// 1 MiB are malformed input, not data.
	maxLineBytes = 1024 * 1024
)

// Classifier is the identity capability the stream consults per record.
// *classifier.Classifier satisfies it.
type Classifier interface {
	Classify(userAgent, clientAddr string) model.AgentIdentity
}

// Summary is the terminal accounting of one consumed source. It is
// valid only after Scan has returned false.
type Summary struct {
	// Format is the detected (or supplied) log format. FormatUnknown
	// means detection failed and every line was counted as a failure.
	Format parser.Format

	// TotalLines counts non-empty lines seen. Blank lines are ignored
	// entirely, so TotalLines == RecordCount + FailureCount.
	TotalLines int64

	// RecordCount counts lines that parsed into a LogRecord.
	RecordCount int64

	// FailureCount counts lines that did not parse.
	FailureCount int64

	// FailuresByReason breaks FailureCount down per failure reason.
	FailuresByReason map[model.FailureReason]int64

	// Failures holds the first failures encountered, capped at the
	// configured limit.
	Failures []model.ParseFailure

	// FailureLimit is the retained-failure cap the stream was built
	// with, so callers combining summaries can honor the same cap.
	FailureLimit int

	// FirstTimestamp and LastTimestamp are the minimum and maximum
	// instants observed across parsed records, independent of stream
	// order. Nil when no record parsed.
	FirstTimestamp *time.Time
	LastTimestamp  *time.Time

	// Exhausted reports that the source yielded zero valid records.
	// The summary is still well formed; the caller decides whether the
	// run's results are meaningful.
	Exhausted bool
}

// Stream is a forward-only iterator over enriched records. Use it like
// bufio.Scanner: call Scan until it returns false, reading each pair
// via Record and Identity, then check Err and collect the Summary.
type Stream struct {
	scanner    *bufio.Scanner
	classifier Classifier

	format       parser.Format
	probeLines   int
	failureLimit int

	parser *parser.LineParser

	// probed buffers the lines consumed during format detection so
	// they replay through Scan before the rest of the source.
	probed   []numberedLine
	probeIdx int

	started bool
	done    bool
	rawLine int64

	record   model.LogRecord
	identity model.AgentIdentity

	err     error
	summary Summary
}

type numberedLine struct {
	text   string
	number int64
}

// Option configures a Stream.
type Option func(*Stream)

// WithFormat skips detection and parses with the given format.
func WithFormat(f parser.Format) Option {
	return func(s *Stream) {
		s.format = f
	}
}

// WithProbeLines overrides how many non-empty lines detection samples.
func WithProbeLines(n int) Option {
	return func(s *Stream) {
		if n > 0 {
			s.probeLines = n
		}
	}
}

// WithFailureLimit overrides the retained-failure cap. Zero retains
// nothing; counts are still kept.
func WithFailureLimit(n int) Option {
	return func(s *Stream) {
		if n >= 0 {
			s.failureLimit = n
		}
	}
}

// New creates a Stream over r. The classifier must not be nil.
func New(r io.Reader, c Classifier, opts ...Option) *Stream {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	s := &Stream{
		scanner:      scanner,
		classifier:   c,
		format:       parser.FormatUnknown,
		probeLines:   parser.DefaultProbeLines,
		failureLimit: DefaultFailureLimit,
		summary: Summary{
			FailuresByReason: make(map[model.FailureReason]int64),
		},
	}

	for _, opt := range opts {
		opt(s)
	}
	s.summary.FailureLimit = s.failureLimit

	return s
}

// Scan advances to the next parseable record, absorbing parse failures
// into the summary along the way. It returns false when the source is
// exhausted or a read error occurred.
func (s *Stream) Scan() bool {
	if s.done {
		return false
	}
	if !s.started {
		s.started = true
		if !s.start() {
			s.finish()
			return false
		}
	}

	for {
		line, number, ok := s.next()
		if !ok {
			s.finish()
			return false
		}

		record, failure := s.parser.Parse(line)
		if failure != nil {
			failure.LineNumber = int(number)
			s.recordFailure(*failure)
			continue
		}

		s.summary.RecordCount++
		s.observe(record.Timestamp)
		s.record = record
		s.identity = s.classifier.Classify(record.UserAgent, record.ClientAddr)
		return true
	}
}

// Record returns the record produced by the last successful Scan.
func (s *Stream) Record() model.LogRecord {
	return s.record
}

// Identity returns the agent identity paired with Record.
func (s *Stream) Identity() model.AgentIdentity {
	return s.identity
}

// Err returns the first read error encountered, if any. Parse failures
// are not errors; they live in the Summary.
func (s *Stream) Err() error {
	return s.err
}

// Summary returns the terminal accounting. It is complete only after
// Scan has returned false.
func (s *Stream) Summary() Summary {
	return s.summary
}

// start establishes the parser, probing the source for its format when
// none was supplied. It returns false when no record can ever be
// produced, after draining the source into the failure counts so the
// summary stays well formed.
func (s *Stream) start() bool {
	format := s.format
	if format == parser.FormatUnknown {
		sample := make([]string, 0, s.probeLines)
		for len(sample) < s.probeLines {
			line, number, ok := s.read()
			if !ok {
				break
			}
			s.probed = append(s.probed, numberedLine{text: line, number: number})
			sample = append(sample, line)
		}

		detected, err := parser.Detect(sample)
		if err != nil {
			if errors.Is(err, parser.ErrFormatUndetected) {
				s.drainAsFailures()
				return false
			}
			s.err = err
			return false
		}
		format = detected
	}

	p, err := parser.New(format)
	if err != nil {
		s.err = err
		return false
	}
	s.parser = p
	s.summary.Format = format
	return true
}

// next yields the following non-empty line, replaying the probe buffer
// before reading from the source.
func (s *Stream) next() (string, int64, bool) {
	if s.probeIdx < len(s.probed) {
		line := s.probed[s.probeIdx]
		s.probeIdx++
		return line.text, line.number, true
	}
	return s.read()
}

// read pulls the next non-empty line directly from the source.
func (s *Stream) read() (string, int64, bool) {
	for s.scanner.Scan() {
		s.rawLine++
		line := s.scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		s.summary.TotalLines++
		return line, s.rawLine, true
	}
	if err := s.scanner.Err(); err != nil {
		s.err = err
	}
	return "", 0, false
}

// drainAsFailures consumes the remaining source when no format could
// be established, counting every line as unparseable.
func (s *Stream) drainAsFailures() {
	for _, line := range s.probed {
		s.recordFailure(model.ParseFailure{
			LineNumber: int(line.number),
			Line:       line.text,
			Reason:     model.FailureFieldCountMismatch,
		})
	}
	s.probed = nil

	for {
		line, number, ok := s.read()
		if !ok {
			return
		}
		s.recordFailure(model.ParseFailure{
			LineNumber: int(number),
			Line:       line,
			Reason:     model.FailureFieldCountMismatch,
		})
	}
}

func (s *Stream) recordFailure(failure model.ParseFailure) {
	s.summary.FailureCount++
	s.summary.FailuresByReason[failure.Reason]++
	if len(s.summary.Failures) < s.failureLimit {
		s.summary.Failures = append(s.summary.Failures, failure)
	}
}

// observe widens the first/last timestamp window. Sources are not
// required to be sorted, so this is a min/max, not first/last by
// position.
func (s *Stream) observe(ts time.Time) {
	if s.summary.FirstTimestamp == nil || ts.Before(*s.summary.FirstTimestamp) {
		first := ts
		s.summary.FirstTimestamp = &first
	}
	if s.summary.LastTimestamp == nil || ts.After(*s.summary.LastTimestamp) {
		last := ts
		s.summary.LastTimestamp = &last
	}
}

func (s *Stream) finish() {
	s.done = true
	s.summary.Exhausted = s.summary.RecordCount == 0
}
