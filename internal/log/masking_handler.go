package log

import (
	"context"
	"io"
	"log/slog"
	"net/netip"
	"strings"
)

// addressKeys contains attribute keys whose values are always treated
// as client addresses and anonymized.
var addressKeys = map[string]bool{
	"client_addr":     true,
	"client_ip":       true,
	"clientaddr":      true,
	"remote_addr":     true,
	"remoteaddr":      true,
	"remote_ip":       true,
	"addr":            true,
	"address":         true,
	"ip":              true,
	"host":            true,
	"x-forwarded-for": true,
	"forwarded":       true,
}

// Prefix lengths kept after anonymization. /24 and /48 match the
// truncation applied by common web-analytics IP anonymizers.
const (
	keepBitsV4 = 24
	keepBitsV6 = 48
)

// MaskingHandler wraps an slog.Handler to anonymize visitor IP
// addresses. It intercepts log records and rewrites attribute values
// that name or resemble client addresses before passing them to the
// underlying handler.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Callers cannot forget to anonymize; the handler catches every
//     attribute, including ones added via With()
type MaskingHandler struct {
	// handler is the underlying slog handler that receives anonymized records.
	handler slog.Handler
}

// NewMaskingHandler creates a new MaskingHandler wrapping the given handler.
// All log attributes are anonymized before being passed to the underlying
// handler. If handler is nil, the returned MaskingHandler uses
// slog.Default().Handler().
func NewMaskingHandler(handler slog.Handler) *MaskingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &MaskingHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle anonymizes the record's attributes and passes it to the
// underlying handler.
func (h *MaskingHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.maskAttr(a))
		return true
	})

	return h.handler.Handle(ctx, masked)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are anonymized before being added.
func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		maskedAttrs[i] = h.maskAttr(a)
	}
	return &MaskingHandler{handler: h.handler.WithAttrs(maskedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{handler: h.handler.WithGroup(name)}
}

// maskAttr anonymizes a single attribute, recursively handling groups.
func (h *MaskingHandler) maskAttr(a slog.Attr) slog.Attr {
	// Handle groups recursively
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		maskedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			maskedAttrs[i] = h.maskAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(maskedAttrs...)}
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}
	value := a.Value.String()

	// Keys that name a client address are anonymized even when the value
	// is a hostname rather than a literal address.
	if isAddressKey(a.Key) {
		return slog.String(a.Key, Anonymize(value))
	}

	// Values that parse as IP addresses are anonymized regardless of key.
	if addr, err := netip.ParseAddr(value); err == nil {
		return slog.String(a.Key, anonymizeAddr(addr))
	}

	return a
}

// isAddressKey reports whether the attribute key names a client address.
func isAddressKey(key string) bool {
	return addressKeys[strings.ToLower(key)]
}

// Anonymize returns an anonymized form of a client address string.
// Literal IP addresses keep their network prefix with the host bits
// zeroed. Anything that does not parse as an IP address (a hostname,
// or a malformed field from a corrupt log line) is replaced wholesale,
// because partial masking of unknown formats is not reliable.
func Anonymize(value string) string {
	if addr, err := netip.ParseAddr(value); err == nil {
		return anonymizeAddr(addr)
	}
	return "***"
}

// anonymizeAddr zeroes the host portion of an address.
func anonymizeAddr(addr netip.Addr) string {
	bits := keepBitsV6
	if addr.Is4() {
		bits = keepBitsV4
	}

	prefix, err := addr.Prefix(bits)
	if err != nil {
		// Unreachable for valid addresses, but never leak on failure.
		return "***"
	}
	return prefix.Addr().String()
}

// NewMaskingLogger creates a new slog.Logger that anonymizes visitor
// addresses in all log output.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger that can be used with slog.SetDefault() or
// passed to components that accept *slog.Logger.
func NewMaskingLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	textHandler := slog.NewTextHandler(w, opts)
	return slog.New(NewMaskingHandler(textHandler))
}

// NewMaskingJSONLogger creates a new slog.Logger with anonymization
// that outputs JSON format. Useful for structured log aggregation.
//
// Parameters:
//   - w: The io.Writer to write log output to
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewMaskingJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	jsonHandler := slog.NewJSONHandler(w, opts)
	return slog.New(NewMaskingHandler(jsonHandler))
}
