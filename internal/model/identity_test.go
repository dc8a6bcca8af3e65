package model

import (
	"encoding/json"
	"errors"
	"testing"
)

// TestBotFamilyString tests the String method of BotFamily.
func TestBotFamilyString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		family   BotFamily
		expected string
	}{
		{FamilyGooglebot, "GOOGLEBOT"},
		{FamilyBingbot, "BINGBOT"},
		{FamilyOtherKnownBot, "OTHER_KNOWN_BOT"},
		{FamilySuspectedFakeBot, "SUSPECTED_FAKE_BOT"},
		{FamilyHuman, "HUMAN"},
		{FamilyUnknown, "UNKNOWN"},
		{BotFamily(999), "UNKNOWN"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.family.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.family.String(), tc.expected)
			}
		})
	}
}

// TestBotFamilyIsBot tests bot family membership.
func TestBotFamilyIsBot(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		family   BotFamily
		expected bool
	}{
		{FamilyGooglebot, true},
		{FamilyBingbot, true},
		{FamilyOtherKnownBot, true},
		{FamilySuspectedFakeBot, true},
		{FamilyHuman, false},
		{FamilyUnknown, false},
	}

	for _, tc := range testCases {
		t.Run(tc.family.String(), func(t *testing.T) {
			t.Parallel()
			if tc.family.IsBot() != tc.expected {
				t.Errorf("IsBot(%v) = %v, expected %v", tc.family, tc.family.IsBot(), tc.expected)
			}
		})
	}
}

// TestEnumTextRoundTrip verifies that every enum value survives a
// marshal/unmarshal cycle through its text name.
func TestEnumTextRoundTrip(t *testing.T) {
	t.Parallel()

	t.Run("BotFamily", func(t *testing.T) {
		t.Parallel()
		for _, f := range []BotFamily{
			FamilyGooglebot, FamilyBingbot, FamilyOtherKnownBot,
			FamilySuspectedFakeBot, FamilyHuman, FamilyUnknown,
		} {
			text, err := f.MarshalText()
			if err != nil {
				t.Fatalf("marshal %v: %v", f, err)
			}
			var got BotFamily
			if err := got.UnmarshalText(text); err != nil {
				t.Fatalf("unmarshal %q: %v", text, err)
			}
			if got != f {
				t.Errorf("round trip %v -> %q -> %v", f, text, got)
			}
		}
	})

	t.Run("DeviceClass", func(t *testing.T) {
		t.Parallel()
		for _, d := range []DeviceClass{DeviceDesktop, DeviceMobile, DeviceUnspecified} {
			text, err := d.MarshalText()
			if err != nil {
				t.Fatalf("marshal %v: %v", d, err)
			}
			var got DeviceClass
			if err := got.UnmarshalText(text); err != nil {
				t.Fatalf("unmarshal %q: %v", text, err)
			}
			if got != d {
				t.Errorf("round trip %v -> %q -> %v", d, text, got)
			}
		}
	})

	t.Run("Authenticity", func(t *testing.T) {
		t.Parallel()
		for _, a := range []Authenticity{AuthVerified, AuthUnverified, AuthSpoofed} {
			text, err := a.MarshalText()
			if err != nil {
				t.Fatalf("marshal %v: %v", a, err)
			}
			var got Authenticity
			if err := got.UnmarshalText(text); err != nil {
				t.Fatalf("unmarshal %q: %v", text, err)
			}
			if got != a {
				t.Errorf("round trip %v -> %q -> %v", a, text, got)
			}
		}
	})

	t.Run("unknown name is rejected", func(t *testing.T) {
		t.Parallel()
		var f BotFamily
		err := f.UnmarshalText([]byte("NOT_A_FAMILY"))
		var enumErr *UnknownEnumError
		if !errors.As(err, &enumErr) {
			t.Fatalf("expected UnknownEnumError, got %v", err)
		}
	})
}

// TestAgentIdentityJSON verifies that identities serialize with enum
// names, not numeric values.
func TestAgentIdentityJSON(t *testing.T) {
	t.Parallel()

	id := AgentIdentity{
		Family:           FamilyGooglebot,
		DeviceClass:      DeviceDesktop,
		Authenticity:     AuthUnverified,
		MatchedSignature: "Googlebot",
	}

	data, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded AgentIdentity
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != id {
		t.Errorf("round trip changed identity: %+v != %+v", decoded, id)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["family"] != "GOOGLEBOT" {
		t.Errorf("family serialized as %v, expected GOOGLEBOT", raw["family"])
	}
	if raw["device_class"] != "DESKTOP" {
		t.Errorf("device_class serialized as %v, expected DESKTOP", raw["device_class"])
	}
}
