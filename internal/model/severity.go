package model

// TrapSeverity grades how far a crawl-trap candidate sits above the
// site's baseline crawl rate.
//
// Design decision: We use iota-based constants rather than string
// constants for efficiency in comparisons and sorting. The String()
// method provides the stable names used in exports.
type TrapSeverity int

const (
	// TrapSeverityNone means the URL's crawl count is within the
	// configured multiplier of the baseline. Findings with this
	// severity are never emitted; the value exists so consumers can
	// represent "not a trap" explicitly.
	TrapSeverityNone TrapSeverity = iota

	// TrapSeverityLow means the count exceeds baseline × multiplier but
	// stays under twice that threshold. Worth reviewing.
	TrapSeverityLow

	// TrapSeverityHigh means the count is at least twice the flagging
	// threshold. These URLs are actively draining crawl budget.
	TrapSeverityHigh
)

// String returns the stable name of the severity tier.
func (s TrapSeverity) String() string {
	switch s {
	case TrapSeverityLow:
		return "LOW"
	case TrapSeverityHigh:
		return "HIGH"
	default:
		return "NONE"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s TrapSeverity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TrapSeverity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "NONE":
		*s = TrapSeverityNone
	case "LOW":
		*s = TrapSeverityLow
	case "HIGH":
		*s = TrapSeverityHigh
	default:
		return &UnknownEnumError{Type: "TrapSeverity", Value: string(text)}
	}
	return nil
}
