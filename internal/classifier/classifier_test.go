package classifier

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"testing"

	"github.com/petersawicki/seo-log-analyzer/internal/model"
)

const (
	googlebotDesktopUA = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
	googlebotMobileUA  = "Mozilla/5.0 (Linux; Android 6.0.1; Nexus 5X Build/MMB29P) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Mobile Safari/537.36 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
	bingbotUA          = "Mozilla/5.0 (compatible; bingbot/2.0; +http://www.bing.com/bingbot.htm)"
	chromeUA           = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
)

// TestClassifyFamilies tests signature-based family assignment.
func TestClassifyFamilies(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		userAgent      string
		expectedFamily model.BotFamily
		expectedDevice model.DeviceClass
	}{
		{"googlebot desktop", googlebotDesktopUA, model.FamilyGooglebot, model.DeviceDesktop},
		{"googlebot smartphone", googlebotMobileUA, model.FamilyGooglebot, model.DeviceMobile},
		{"googlebot image", "Googlebot-Image/1.0", model.FamilyGooglebot, model.DeviceUnspecified},
		{"bingbot", bingbotUA, model.FamilyBingbot, model.DeviceUnspecified},
		{"yandex", "Mozilla/5.0 (compatible; YandexBot/3.0; +http://yandex.com/bots)", model.FamilyOtherKnownBot, model.DeviceUnspecified},
		{"ahrefs", "Mozilla/5.0 (compatible; AhrefsBot/7.0; +http://ahrefs.com/robot/)", model.FamilyOtherKnownBot, model.DeviceUnspecified},
		{"screaming frog", "Screaming Frog SEO Spider/19.2", model.FamilyOtherKnownBot, model.DeviceUnspecified},
		{"browser", chromeUA, model.FamilyHuman, model.DeviceUnspecified},
		{"empty agent", "-", model.FamilyUnknown, model.DeviceUnspecified},
		{"script client", "python-requests/2.31", model.FamilyUnknown, model.DeviceUnspecified},
	}

	c := New()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			identity := c.Classify(tc.userAgent, "10.0.0.1")
			if identity.Family != tc.expectedFamily {
				t.Errorf("Family = %v, expected %v", identity.Family, tc.expectedFamily)
			}
			if identity.DeviceClass != tc.expectedDevice {
				t.Errorf("DeviceClass = %v, expected %v", identity.DeviceClass, tc.expectedDevice)
			}
		})
	}
}

// TestClassifyWithoutVerifierNeverVerified tests a core authenticity
// invariant: absent a capability, bots default to UNVERIFIED.
func TestClassifyWithoutVerifierNeverVerified(t *testing.T) {
	t.Parallel()

	c := New()
	for _, ua := range []string{googlebotDesktopUA, googlebotMobileUA, bingbotUA, "SemrushBot/7~bl"} {
		identity := c.Classify(ua, "66.249.66.1")
		if identity.Authenticity == model.AuthVerified {
			t.Errorf("agent %q verified without a capability", ua)
		}
		if identity.Authenticity != model.AuthUnverified {
			t.Errorf("agent %q authenticity = %v, expected UNVERIFIED", ua, identity.Authenticity)
		}
	}
}

// TestLongestMatchWins tests the tie-break rule for overlapping tokens.
func TestLongestMatchWins(t *testing.T) {
	t.Parallel()

	// "Googlebot-Image/1.0" contains both "Googlebot" and
	// "Googlebot-Image"; the longer token must decide the device class.
	sig, found := matchSignature(DefaultSignatures(), "Googlebot-Image/1.0")
	if !found {
		t.Fatal("expected a signature match")
	}
	if sig.Token != "Googlebot-Image" {
		t.Errorf("matched %q, expected Googlebot-Image", sig.Token)
	}
}

// fakeVerifier returns a fixed outcome for every query.
type fakeVerifier struct {
	outcome Outcome
	calls   int
}

func (f *fakeVerifier) Verify(model.BotFamily, string) Outcome {
	f.calls++
	return f.outcome
}

// TestClassifyVerifierOutcomes tests how each verifier verdict maps
// onto the reported identity.
func TestClassifyVerifierOutcomes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		outcome      Outcome
		expectFamily model.BotFamily
		expectAuth   model.Authenticity
	}{
		{"confirmed", OutcomeConfirmed, model.FamilyGooglebot, model.AuthVerified},
		{"denied", OutcomeDenied, model.FamilySuspectedFakeBot, model.AuthSpoofed},
		{"inconclusive", OutcomeInconclusive, model.FamilyGooglebot, model.AuthUnverified},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := New(WithVerifier(&fakeVerifier{outcome: tc.outcome}))
			identity := c.Classify(googlebotDesktopUA, "203.0.113.7")
			if identity.Family != tc.expectFamily {
				t.Errorf("Family = %v, expected %v", identity.Family, tc.expectFamily)
			}
			if identity.Authenticity != tc.expectAuth {
				t.Errorf("Authenticity = %v, expected %v", identity.Authenticity, tc.expectAuth)
			}
		})
	}
}

// TestClassifyCachesByCompositeKey tests that identities are computed
// at most once per (user agent, address) pair.
func TestClassifyCachesByCompositeKey(t *testing.T) {
	t.Parallel()

	fake := &fakeVerifier{outcome: OutcomeConfirmed}
	c := New(WithVerifier(fake))

	for range 5 {
		c.Classify(googlebotDesktopUA, "66.249.66.1")
	}
	if fake.calls != 1 {
		t.Errorf("verifier called %d times, expected 1", fake.calls)
	}

	// A different address is a different key.
	c.Classify(googlebotDesktopUA, "66.249.66.2")
	if fake.calls != 2 {
		t.Errorf("verifier called %d times, expected 2", fake.calls)
	}
}

// TestClassifyHumanSkipsVerifier tests that non-bot agents never incur
// a verification call.
func TestClassifyHumanSkipsVerifier(t *testing.T) {
	t.Parallel()

	fake := &fakeVerifier{outcome: OutcomeDenied}
	c := New(WithVerifier(fake))

	identity := c.Classify(chromeUA, "198.51.100.3")
	if identity.Family != model.FamilyHuman {
		t.Fatalf("Family = %v, expected HUMAN", identity.Family)
	}
	if fake.calls != 0 {
		t.Errorf("verifier called %d times for a human agent", fake.calls)
	}
}

// TestDNSVerifier tests the reverse-plus-forward check with injected
// resolver functions.
func TestDNSVerifier(t *testing.T) {
	t.Parallel()

	const botAddr = "66.249.66.1"

	testCases := []struct {
		name       string
		lookupAddr func(ctx context.Context, addr string) ([]string, error)
		lookupHost func(ctx context.Context, host string) ([]string, error)
		expected   Outcome
	}{
		{
			name: "genuine googlebot",
			lookupAddr: func(_ context.Context, _ string) ([]string, error) {
				return []string{"crawl-66-249-66-1.googlebot.com."}, nil
			},
			lookupHost: func(_ context.Context, _ string) ([]string, error) {
				return []string{botAddr}, nil
			},
			expected: OutcomeConfirmed,
		},
		{
			name: "unrelated owner",
			lookupAddr: func(_ context.Context, _ string) ([]string, error) {
				return []string{"ec2-66-249-66-1.compute.amazonaws.com."}, nil
			},
			lookupHost: func(_ context.Context, _ string) ([]string, error) {
				return []string{botAddr}, nil
			},
			expected: OutcomeDenied,
		},
		{
			name: "forged ptr fails forward confirmation",
			lookupAddr: func(_ context.Context, _ string) ([]string, error) {
				return []string{"crawl-1-2-3-4.googlebot.com."}, nil
			},
			lookupHost: func(_ context.Context, _ string) ([]string, error) {
				return []string{"1.2.3.4"}, nil
			},
			expected: OutcomeDenied,
		},
		{
			name: "forward lookup failure is inconclusive",
			lookupAddr: func(_ context.Context, _ string) ([]string, error) {
				return []string{"crawl-66-249-66-1.googlebot.com."}, nil
			},
			lookupHost: func(_ context.Context, _ string) ([]string, error) {
				return nil, errors.New("i/o timeout")
			},
			expected: OutcomeInconclusive,
		},
		{
			name: "forward failure on one hostname but confirmation on another",
			lookupAddr: func(_ context.Context, _ string) ([]string, error) {
				return []string{
					"rate-limited-proxy-66-249-66-1.google.com.",
					"crawl-66-249-66-1.googlebot.com.",
				}, nil
			},
			lookupHost: func(_ context.Context, host string) ([]string, error) {
				if strings.HasSuffix(host, "googlebot.com") {
					return []string{botAddr}, nil
				}
				return nil, errors.New("i/o timeout")
			},
			expected: OutcomeConfirmed,
		},
		{
			name: "resolver failure is inconclusive",
			lookupAddr: func(_ context.Context, _ string) ([]string, error) {
				return nil, errors.New("no PTR record")
			},
			lookupHost: func(_ context.Context, _ string) ([]string, error) {
				return nil, errors.New("unused")
			},
			expected: OutcomeInconclusive,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v := NewDNSVerifier(WithLookupFuncs(tc.lookupAddr, tc.lookupHost))
			if got := v.Verify(model.FamilyGooglebot, botAddr); got != tc.expected {
				t.Errorf("Verify = %v, expected %v", got, tc.expected)
			}
		})
	}
}

// TestDNSVerifierUnknownFamily tests that families without operator
// domains are inconclusive, not denied.
func TestDNSVerifierUnknownFamily(t *testing.T) {
	t.Parallel()

	v := NewDNSVerifier(WithLookupFuncs(
		func(_ context.Context, _ string) ([]string, error) {
			t.Error("lookupAddr must not be called for unverifiable families")
			return nil, nil
		},
		func(_ context.Context, _ string) ([]string, error) { return nil, nil },
	))

	if got := v.Verify(model.FamilyOtherKnownBot, "203.0.113.9"); got != OutcomeInconclusive {
		t.Errorf("Verify = %v, expected inconclusive", got)
	}
}

// TestStaticRangeVerifier tests the offline range table capability.
func TestStaticRangeVerifier(t *testing.T) {
	t.Parallel()

	ranges := map[model.BotFamily][]netip.Prefix{
		model.FamilyGooglebot: {netip.MustParsePrefix("66.249.64.0/19")},
	}
	v := NewStaticRangeVerifier(ranges)

	testCases := []struct {
		name     string
		family   model.BotFamily
		addr     string
		expected Outcome
	}{
		{"in range", model.FamilyGooglebot, "66.249.66.1", OutcomeConfirmed},
		{"out of range", model.FamilyGooglebot, "203.0.113.1", OutcomeDenied},
		{"no table for family", model.FamilyBingbot, "203.0.113.1", OutcomeInconclusive},
		{"malformed address", model.FamilyGooglebot, "not-an-ip", OutcomeInconclusive},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := v.Verify(tc.family, tc.addr); got != tc.expected {
				t.Errorf("Verify = %v, expected %v", got, tc.expected)
			}
		})
	}
}
