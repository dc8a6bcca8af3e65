package config

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"github.com/petersawicki/seo-log-analyzer/internal/classifier"
	"github.com/petersawicki/seo-log-analyzer/internal/model"
	"github.com/petersawicki/seo-log-analyzer/internal/trap"
)

// Verification modes accepted in the profile file.
const (
	// VerifyNone disables bot verification. Every declared bot stays
	// UNVERIFIED.
	VerifyNone = "none"

	// VerifyDNS verifies declared bots with a forward-confirmed
	// reverse DNS lookup against the operator's domains.
	VerifyDNS = "dns"

	// VerifyRanges verifies declared bots against published IP ranges
	// listed in the profile, with no network lookups.
	VerifyRanges = "ranges"
)

// SignatureEntry is one custom crawler signature in the profile file.
// Entries extend the built-in signature table; an entry whose token
// matches a built-in one replaces it.
type SignatureEntry struct {
	// Token is the user-agent substring that identifies the crawler,
	// matched case-insensitively.
	Token string `yaml:"token"`

	// Family is the bot family name the token maps to, e.g.
	// "GOOGLEBOT" or "OTHER_KNOWN_BOT".
	Family string `yaml:"family"`

	// Device is the optional device class: "DESKTOP", "MOBILE", or
	// "UNSPECIFIED" (the default when omitted).
	Device string `yaml:"device,omitempty"`
}

// RuleEntry is one URL normalization rule in the profile file, applied
// before crawl-trap pattern grouping.
type RuleEntry struct {
	// Pattern is a regular expression matched against each URL path.
	Pattern string `yaml:"pattern"`

	// Replacement is the text substituted for each match. Capture
	// group references ($1, $2) are supported.
	Replacement string `yaml:"replacement"`
}

// VerificationEntry configures how declared bots are verified.
type VerificationEntry struct {
	// Mode selects the verification strategy: "none", "dns", or
	// "ranges". Empty means "none".
	Mode string `yaml:"mode,omitempty"`

	// Ranges maps bot family names to published CIDR prefixes. Only
	// used when Mode is "ranges".
	Ranges map[string][]string `yaml:"ranges,omitempty"`
}

// Profile represents the structure of the .seolog profile file.
type Profile struct {
	// Signatures are custom crawler signatures that extend the
	// built-in table.
	Signatures []SignatureEntry `yaml:"signatures,omitempty"`

	// Verification configures how declared bots are verified.
	Verification VerificationEntry `yaml:"verification,omitempty"`

	// NormalizationRules are URL rewrite rules applied before
	// crawl-trap pattern grouping, e.g. collapsing session tokens.
	NormalizationRules []RuleEntry `yaml:"normalizationRules,omitempty"`

	// SlowPageThresholdMs overrides the slow-page threshold when
	// positive. The CLI flag takes precedence over this value.
	SlowPageThresholdMs float64 `yaml:"slowPageThresholdMs,omitempty"`

	// TrapMultiplier overrides the crawl-trap multiplier when greater
	// than 1. The CLI flag takes precedence over this value.
	TrapMultiplier float64 `yaml:"trapMultiplier,omitempty"`
}

// ClassifierSignatures converts the profile's signature entries into
// the classifier's table. Entries with a new token are appended after
// the built-in signatures so longest-match precedence still applies
// across both sets; an entry whose token equals a built-in one
// (case-insensitively, the way tokens are matched) replaces it.
// It returns an error naming the first entry with an unknown family or
// device name.
func (p *Profile) ClassifierSignatures() ([]classifier.Signature, error) {
	if len(p.Signatures) == 0 {
		return classifier.DefaultSignatures(), nil
	}

	overridden := make(map[string]struct{}, len(p.Signatures))
	for _, entry := range p.Signatures {
		overridden[strings.ToLower(entry.Token)] = struct{}{}
	}

	signatures := make([]classifier.Signature, 0, len(classifier.DefaultSignatures())+len(p.Signatures))
	for _, sig := range classifier.DefaultSignatures() {
		if _, ok := overridden[strings.ToLower(sig.Token)]; ok {
			continue
		}
		signatures = append(signatures, sig)
	}

	for _, entry := range p.Signatures {
		if entry.Token == "" {
			return nil, fmt.Errorf("signature entry missing token")
		}

		family, err := model.ParseBotFamily(entry.Family)
		if err != nil {
			return nil, fmt.Errorf("signature %q: %w", entry.Token, err)
		}

		device := model.DeviceUnspecified
		if entry.Device != "" {
			if err := device.UnmarshalText([]byte(entry.Device)); err != nil {
				return nil, fmt.Errorf("signature %q: %w", entry.Token, err)
			}
		}

		signatures = append(signatures, classifier.Signature{
			Token:  entry.Token,
			Family: family,
			Device: device,
		})
	}

	return signatures, nil
}

// Verifier builds the bot verifier selected by the profile's
// verification mode. It returns nil for mode "none", which leaves every
// declared bot UNVERIFIED.
func (p *Profile) Verifier() (classifier.Verifier, error) {
	switch p.Verification.Mode {
	case "", VerifyNone:
		return nil, nil
	case VerifyDNS:
		return classifier.NewDNSVerifier(), nil
	case VerifyRanges:
		ranges, err := p.verificationRanges()
		if err != nil {
			return nil, err
		}
		return classifier.NewStaticRangeVerifier(ranges), nil
	default:
		return nil, fmt.Errorf("unknown verification mode %q: expected none, dns, or ranges", p.Verification.Mode)
	}
}

// verificationRanges parses the profile's CIDR ranges into per-family
// prefix tables.
func (p *Profile) verificationRanges() (map[model.BotFamily][]netip.Prefix, error) {
	ranges := make(map[model.BotFamily][]netip.Prefix, len(p.Verification.Ranges))
	for familyName, cidrs := range p.Verification.Ranges {
		family, err := model.ParseBotFamily(familyName)
		if err != nil {
			return nil, fmt.Errorf("verification ranges: %w", err)
		}

		prefixes := make([]netip.Prefix, 0, len(cidrs))
		for _, cidr := range cidrs {
			prefix, err := netip.ParsePrefix(cidr)
			if err != nil {
				return nil, fmt.Errorf("verification range for %s: %w", familyName, err)
			}
			prefixes = append(prefixes, prefix)
		}
		ranges[family] = prefixes
	}
	return ranges, nil
}

// TrapRules compiles the profile's normalization rules for the trap
// detector. Rules are applied in file order before the built-in
// numeric-segment collapsing.
func (p *Profile) TrapRules() ([]trap.Rule, error) {
	if len(p.NormalizationRules) == 0 {
		return nil, nil
	}

	rules := make([]trap.Rule, 0, len(p.NormalizationRules))
	for _, entry := range p.NormalizationRules {
		re, err := regexp.Compile(entry.Pattern)
		if err != nil {
			return nil, fmt.Errorf("normalization rule %q: %w", entry.Pattern, err)
		}
		rules = append(rules, trap.Rule{Pattern: re, Replacement: entry.Replacement})
	}
	return rules, nil
}
