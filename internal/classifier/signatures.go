package classifier

import (
	"strings"

	"github.com/petersawicki/seo-log-analyzer/internal/model"
)

// Signature is one entry of the bot-signature table: a token that,
// when found in a user-agent string, identifies a crawler family and
// optionally its device class.
//
// Design decision: the table is a finite ordered set of tuples
// evaluated by longest-match precedence, not a chain of per-bot types.
// Substring overlap between tokens is common ("Googlebot" is a prefix
// of "Googlebot-Mobile"), so the most specific token must win
// regardless of table order.
type Signature struct {
	// Token is the substring that identifies the crawler,
	// matched case-insensitively.
	Token string

	// Family is the bot family the token maps to.
	Family model.BotFamily

	// Device is the crawl agent's device class, DeviceUnspecified for
	// crawlers without a desktop/mobile distinction.
	Device model.DeviceClass
}

// DefaultSignatures returns the built-in signature table covering the
// major search engines and the SEO/aggressive crawlers that commonly
// dominate crawl budgets. The profile file can extend or replace it.
func DefaultSignatures() []Signature {
	return []Signature{
		// Google operates distinct desktop and smartphone crawl agents.
		// The smartphone agent advertises an Android platform with a
		// plain "Googlebot" token, handled in classify.
		{Token: "Googlebot-Mobile", Family: model.FamilyGooglebot, Device: model.DeviceMobile},
		{Token: "Googlebot-Image", Family: model.FamilyGooglebot, Device: model.DeviceUnspecified},
		{Token: "Googlebot-News", Family: model.FamilyGooglebot, Device: model.DeviceUnspecified},
		{Token: "Googlebot-Video", Family: model.FamilyGooglebot, Device: model.DeviceUnspecified},
		{Token: "Googlebot", Family: model.FamilyGooglebot, Device: model.DeviceDesktop},

		{Token: "bingbot", Family: model.FamilyBingbot, Device: model.DeviceUnspecified},
		{Token: "adidxbot", Family: model.FamilyBingbot, Device: model.DeviceUnspecified},

		// Other declared crawlers.
		{Token: "YandexBot", Family: model.FamilyOtherKnownBot, Device: model.DeviceUnspecified},
		{Token: "Baiduspider", Family: model.FamilyOtherKnownBot, Device: model.DeviceUnspecified},
		{Token: "DuckDuckBot", Family: model.FamilyOtherKnownBot, Device: model.DeviceUnspecified},
		{Token: "Slurp", Family: model.FamilyOtherKnownBot, Device: model.DeviceUnspecified},
		{Token: "Applebot", Family: model.FamilyOtherKnownBot, Device: model.DeviceUnspecified},
		{Token: "PetalBot", Family: model.FamilyOtherKnownBot, Device: model.DeviceUnspecified},
		{Token: "SemrushBot", Family: model.FamilyOtherKnownBot, Device: model.DeviceUnspecified},
		{Token: "AhrefsBot", Family: model.FamilyOtherKnownBot, Device: model.DeviceUnspecified},
		{Token: "Screaming Frog", Family: model.FamilyOtherKnownBot, Device: model.DeviceUnspecified},
		{Token: "MJ12bot", Family: model.FamilyOtherKnownBot, Device: model.DeviceUnspecified},
		{Token: "DotBot", Family: model.FamilyOtherKnownBot, Device: model.DeviceUnspecified},
		{Token: "GPTBot", Family: model.FamilyOtherKnownBot, Device: model.DeviceUnspecified},
	}
}

// matchSignature finds the signature with the longest token contained
// in the user agent. Ties keep the earlier table entry.
func matchSignature(signatures []Signature, userAgent string) (Signature, bool) {
	lowered := strings.ToLower(userAgent)

	var best Signature
	found := false
	for _, sig := range signatures {
		if !strings.Contains(lowered, strings.ToLower(sig.Token)) {
			continue
		}
		if !found || len(sig.Token) > len(best.Token) {
			best = sig
			found = true
		}
	}
	return best, found
}

// browserMarkers are tokens that make an unmatched user agent resemble
// a regular browser rather than an anonymous client.
var browserMarkers = []string{
	"Mozilla/",
	"Opera/",
	"Opera ",
	"Chrome/",
	"Safari/",
	"Firefox/",
	"MSIE ",
	"Trident/",
	"Edg/",
}

// looksLikeBrowser reports whether a user agent resembles a browser
// signature. Only consulted after signature matching found no crawler.
func looksLikeBrowser(userAgent string) bool {
	for _, marker := range browserMarkers {
		if strings.Contains(userAgent, marker) {
			return true
		}
	}
	return false
}
