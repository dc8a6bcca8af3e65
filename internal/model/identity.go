package model

import "fmt"

// UnknownEnumError is returned when decoding an enum name that this
// version of the tool does not know.
type UnknownEnumError struct {
	// Type is the Go type name of the enum.
	Type string

	// Value is the unrecognized name.
	Value string
}

// Error implements the error interface.
func (e *UnknownEnumError) Error() string {
	return fmt.Sprintf("unknown %s value %q", e.Type, e.Value)
}

// BotFamily identifies the crawler family an agent claims to belong to.
//
// Design decision: We use iota-based constants rather than string
// constants for efficiency in comparisons and map keys. MarshalText
// provides the stable names the export format requires.
type BotFamily int

const (
	// FamilyUnknown is an agent that matches neither a bot signature
	// nor a browser-looking user agent.
	FamilyUnknown BotFamily = iota

	// FamilyHuman is a user agent that resembles a regular browser.
	FamilyHuman

	// FamilyGooglebot covers Google's desktop and smartphone crawlers.
	FamilyGooglebot

	// FamilyBingbot covers Microsoft's Bing crawler.
	FamilyBingbot

	// FamilyOtherKnownBot covers every other declared crawler in the
	// signature table (Yandex, Baidu, Ahrefs, Semrush, ...).
	FamilyOtherKnownBot

	// FamilySuspectedFakeBot is an agent that claimed a known bot's
	// user agent but failed address-ownership verification.
	FamilySuspectedFakeBot
)

// IsBot reports whether the family is a declared crawler family.
// Suspected fakes count as bots for budget accounting: they consume the
// site's resources whether or not the claim is genuine.
func (b BotFamily) IsBot() bool {
	switch b {
	case FamilyGooglebot, FamilyBingbot, FamilyOtherKnownBot, FamilySuspectedFakeBot:
		return true
	default:
		return false
	}
}

// String returns the stable name of the family.
func (b BotFamily) String() string {
	switch b {
	case FamilyGooglebot:
		return "GOOGLEBOT"
	case FamilyBingbot:
		return "BINGBOT"
	case FamilyOtherKnownBot:
		return "OTHER_KNOWN_BOT"
	case FamilySuspectedFakeBot:
		return "SUSPECTED_FAKE_BOT"
	case FamilyHuman:
		return "HUMAN"
	case FamilyUnknown:
		return "UNKNOWN"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler. Families appear as map
// keys in the summary, so text marshaling (not just JSON) is required.
func (b BotFamily) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BotFamily) UnmarshalText(text []byte) error {
	switch string(text) {
	case "GOOGLEBOT":
		*b = FamilyGooglebot
	case "BINGBOT":
		*b = FamilyBingbot
	case "OTHER_KNOWN_BOT":
		*b = FamilyOtherKnownBot
	case "SUSPECTED_FAKE_BOT":
		*b = FamilySuspectedFakeBot
	case "HUMAN":
		*b = FamilyHuman
	case "UNKNOWN":
		*b = FamilyUnknown
	default:
		return &UnknownEnumError{Type: "BotFamily", Value: string(text)}
	}
	return nil
}

// ParseBotFamily converts a family name (as produced by String) back to
// its value. Used by the YAML profile loader.
func ParseBotFamily(name string) (BotFamily, error) {
	var b BotFamily
	if err := b.UnmarshalText([]byte(name)); err != nil {
		return FamilyUnknown, err
	}
	return b, nil
}

// DeviceClass distinguishes desktop- and mobile-rendering crawler
// variants. The distinction currently matters only for Googlebot, which
// operates separate desktop and smartphone crawl agents.
type DeviceClass int

const (
	// DeviceUnspecified means the signature carries no device
	// information. Records with this class are counted separately and
	// never folded into either side of the mobile/desktop split.
	DeviceUnspecified DeviceClass = iota

	// DeviceDesktop is the desktop-rendering crawl agent.
	DeviceDesktop

	// DeviceMobile is the smartphone-rendering crawl agent.
	DeviceMobile
)

// String returns the stable name of the device class.
func (d DeviceClass) String() string {
	switch d {
	case DeviceDesktop:
		return "DESKTOP"
	case DeviceMobile:
		return "MOBILE"
	default:
		return "UNSPECIFIED"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d DeviceClass) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DeviceClass) UnmarshalText(text []byte) error {
	switch string(text) {
	case "DESKTOP":
		*d = DeviceDesktop
	case "MOBILE":
		*d = DeviceMobile
	case "UNSPECIFIED":
		*d = DeviceUnspecified
	default:
		return &UnknownEnumError{Type: "DeviceClass", Value: string(text)}
	}
	return nil
}

// Authenticity records the outcome of the address-ownership check for
// an agent that claims to be a known bot.
type Authenticity int

const (
	// AuthUnverified means no verification capability was available or
	// the check was inconclusive. Without a capability, bots are always
	// UNVERIFIED, never VERIFIED.
	AuthUnverified Authenticity = iota

	// AuthVerified means the reverse-DNS (or static range) check
	// confirmed the address belongs to the claimed bot operator.
	AuthVerified

	// AuthSpoofed means the check explicitly failed: the address
	// resolves to an unrelated owner.
	AuthSpoofed
)

// String returns the stable name of the authenticity verdict.
func (a Authenticity) String() string {
	switch a {
	case AuthVerified:
		return "VERIFIED"
	case AuthSpoofed:
		return "SPOOFED"
	default:
		return "UNVERIFIED"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Authenticity) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Authenticity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "VERIFIED":
		*a = AuthVerified
	case "SPOOFED":
		*a = AuthSpoofed
	case "UNVERIFIED":
		*a = AuthUnverified
	default:
		return &UnknownEnumError{Type: "Authenticity", Value: string(text)}
	}
	return nil
}

// AgentIdentity is the classification result for one (user agent,
// client address) pair. It is attached to records by lookup, not owned
// by them: classification is address-sensitive because authenticity
// verification depends on the client address.
//
// Classification is a pure function of (user agent, client address,
// available verification capability); identical inputs always yield the
// same identity within one run, so identities may be cached by that
// composite key.
type AgentIdentity struct {
	// Family is the classified bot family.
	Family BotFamily `json:"family"`

	// DeviceClass is the crawl agent's rendering device.
	DeviceClass DeviceClass `json:"device_class"`

	// Authenticity is the address-ownership verdict.
	Authenticity Authenticity `json:"authenticity"`

	// MatchedSignature is the signature token that selected the family,
	// empty for HUMAN and UNKNOWN agents.
	MatchedSignature string `json:"matched_signature,omitempty"`
}
