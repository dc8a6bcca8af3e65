package classifier

import (
	"strings"
	"sync"

	"github.com/petersawicki/seo-log-analyzer/internal/model"
)

// Classifier assigns agent identities from user-agent strings and
// client addresses. It is safe for concurrent use; identities are
// cached per (user agent, client address) pair for the lifetime of the
// classifier, so each composite key is computed at most once per run.
type Classifier struct {
	signatures []Signature

	// verifier is the optional address-ownership capability. Nil means
	// no verification: bots stay UNVERIFIED.
	verifier Verifier

	mu    sync.Mutex
	cache map[identityKey]model.AgentIdentity
}

type identityKey struct {
	userAgent  string
	clientAddr string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithSignatures replaces the default signature table.
func WithSignatures(signatures []Signature) Option {
	return func(c *Classifier) {
		if len(signatures) > 0 {
			c.signatures = signatures
		}
	}
}

// WithVerifier injects an address-ownership capability. Without one,
// every known bot is reported UNVERIFIED.
func WithVerifier(v Verifier) Option {
	return func(c *Classifier) {
		c.verifier = v
	}
}

// New creates a Classifier with the default signature table.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		signatures: DefaultSignatures(),
		cache:      make(map[identityKey]model.AgentIdentity),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Classify returns the identity for one (user agent, client address)
// pair. It never fails; the worst case is FamilyUnknown/AuthUnverified.
//
// The result is deterministic for fixed inputs and a fixed verifier,
// and is cached by the composite key for the classifier's lifetime.
func (c *Classifier) Classify(userAgent, clientAddr string) model.AgentIdentity {
	key := identityKey{userAgent: userAgent, clientAddr: clientAddr}

	c.mu.Lock()
	if identity, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return identity
	}
	c.mu.Unlock()

	identity := c.classify(userAgent, clientAddr)

	c.mu.Lock()
	c.cache[key] = identity
	c.mu.Unlock()

	return identity
}

func (c *Classifier) classify(userAgent, clientAddr string) model.AgentIdentity {
	sig, matched := matchSignature(c.signatures, userAgent)
	if !matched {
		family := model.FamilyUnknown
		if looksLikeBrowser(userAgent) {
			family = model.FamilyHuman
		}
		return model.AgentIdentity{
			Family:       family,
			DeviceClass:  model.DeviceUnspecified,
			Authenticity: model.AuthUnverified,
		}
	}

	identity := model.AgentIdentity{
		Family:           sig.Family,
		DeviceClass:      sig.Device,
		Authenticity:     model.AuthUnverified,
		MatchedSignature: sig.Token,
	}

	// Google's smartphone crawler advertises an Android platform with
	// the plain "Googlebot" token; keep the signature table small and
	// refine the device class here.
	if sig.Family == model.FamilyGooglebot && sig.Device == model.DeviceDesktop &&
		strings.Contains(userAgent, "Android") {
		identity.DeviceClass = model.DeviceMobile
	}

	if c.verifier == nil || !sig.Family.IsBot() {
		return identity
	}

	switch c.verifier.Verify(sig.Family, clientAddr) {
	case OutcomeConfirmed:
		identity.Authenticity = model.AuthVerified
	case OutcomeDenied:
		identity.Family = model.FamilySuspectedFakeBot
		identity.Authenticity = model.AuthSpoofed
	case OutcomeInconclusive:
		// Capability could not decide: family unchanged, UNVERIFIED.
	}

	return identity
}
