package classifier

import (
	"context"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/petersawicki/seo-log-analyzer/internal/model"
)

// Outcome is the result of an address-ownership check.
type Outcome int

const (
	// OutcomeInconclusive means the check could not decide: the
	// capability errored, the family has no known operator data, or the
	// address was malformed. Inconclusive never downgrades a bot.
	OutcomeInconclusive Outcome = iota

	// OutcomeConfirmed means the address provably belongs to the
	// claimed bot operator.
	OutcomeConfirmed

	// OutcomeDenied means the address provably belongs to someone else.
	OutcomeDenied
)

// String returns a short name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeDenied:
		return "denied"
	default:
		return "inconclusive"
	}
}

// Verifier is the optional address-ownership capability injected into
// the classifier. Implementations must be safe for concurrent use and
// must answer each unique (family, address) pair from cache after the
// first computation: verification may involve network latency and must
// not become a per-line cost.
//
// Design decision: verification is capability-passing, not a hardwired
// network call, so the classifier stays pure and testable offline.
type Verifier interface {
	// Verify checks whether clientAddr belongs to the operator of the
	// claimed bot family. It never returns an error; uncertainty is
	// OutcomeInconclusive.
	Verify(family model.BotFamily, clientAddr string) Outcome
}

// operatorDomains maps verifiable bot families to the DNS suffixes
// their crawl fleets resolve into. Families absent from the map cannot
// be verified by reverse DNS and always come back inconclusive.
var operatorDomains = map[model.BotFamily][]string{
	model.FamilyGooglebot: {"googlebot.com", "google.com"},
	model.FamilyBingbot:   {"search.msn.com", "msn.com"},
}

// DNSVerifier verifies bot identity the way the operators document it:
// reverse-resolve the address, require the hostname's registrable
// domain to belong to the operator, then forward-resolve the hostname
// and require it to map back to the same address.
type DNSVerifier struct {
	// lookupAddr and lookupHost are injectable for tests; defaults use
	// net.DefaultResolver.
	lookupAddr func(ctx context.Context, addr string) ([]string, error)
	lookupHost func(ctx context.Context, host string) ([]string, error)

	// timeout bounds each DNS round trip.
	timeout time.Duration

	// domains maps families to operator DNS suffixes.
	domains map[model.BotFamily][]string

	// cache stores one outcome per (family, address) pair for the run.
	mu    sync.Mutex
	cache map[verifyKey]Outcome
}

type verifyKey struct {
	family model.BotFamily
	addr   string
}

// DNSVerifierOption configures a DNSVerifier.
type DNSVerifierOption func(*DNSVerifier)

// WithLookupFuncs replaces the resolver functions. Used by tests and by
// callers that route DNS through a custom resolver.
func WithLookupFuncs(
	lookupAddr func(ctx context.Context, addr string) ([]string, error),
	lookupHost func(ctx context.Context, host string) ([]string, error),
) DNSVerifierOption {
	return func(v *DNSVerifier) {
		v.lookupAddr = lookupAddr
		v.lookupHost = lookupHost
	}
}

// WithDNSTimeout overrides the per-lookup timeout.
func WithDNSTimeout(d time.Duration) DNSVerifierOption {
	return func(v *DNSVerifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithOperatorDomains replaces the operator domain table.
func WithOperatorDomains(domains map[model.BotFamily][]string) DNSVerifierOption {
	return func(v *DNSVerifier) {
		v.domains = domains
	}
}

// NewDNSVerifier creates a reverse-DNS verifier backed by the system
// resolver.
func NewDNSVerifier(opts ...DNSVerifierOption) *DNSVerifier {
	v := &DNSVerifier{
		lookupAddr: net.DefaultResolver.LookupAddr,
		lookupHost: net.DefaultResolver.LookupHost,
		timeout:    5 * time.Second,
		domains:    operatorDomains,
		cache:      make(map[verifyKey]Outcome),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Verify implements Verifier.
func (v *DNSVerifier) Verify(family model.BotFamily, clientAddr string) Outcome {
	key := verifyKey{family: family, addr: clientAddr}

	v.mu.Lock()
	if outcome, ok := v.cache[key]; ok {
		v.mu.Unlock()
		return outcome
	}
	v.mu.Unlock()

	outcome := v.verify(family, clientAddr)

	v.mu.Lock()
	v.cache[key] = outcome
	v.mu.Unlock()

	return outcome
}

func (v *DNSVerifier) verify(family model.BotFamily, clientAddr string) Outcome {
	suffixes, ok := v.domains[family]
	if !ok {
		return OutcomeInconclusive
	}

	if _, err := netip.ParseAddr(clientAddr); err != nil {
		return OutcomeInconclusive
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	hostnames, err := v.lookupAddr(ctx, clientAddr)
	if err != nil {
		// No PTR record or resolver failure: cannot decide.
		return OutcomeInconclusive
	}
	if len(hostnames) == 0 {
		return OutcomeInconclusive
	}

	// A forward lookup that errors is not evidence of forgery: the PTR
	// already points at the operator, and a transient resolver failure
	// must not brand a genuine bot as spoofed. Denied requires that every
	// operator-owned hostname forward-resolved and none mapped back.
	forwardErrored := false

	for _, hostname := range hostnames {
		hostname = strings.TrimSuffix(hostname, ".")
		if !operatorOwns(hostname, suffixes) {
			continue
		}

		// Forward confirmation: the operator hostname must resolve back
		// to the address we started from, otherwise the PTR is forged.
		fwdCtx, fwdCancel := context.WithTimeout(context.Background(), v.timeout)
		addrs, err := v.lookupHost(fwdCtx, hostname)
		fwdCancel()
		if err != nil {
			forwardErrored = true
			continue
		}
		for _, addr := range addrs {
			if addr == clientAddr {
				return OutcomeConfirmed
			}
		}
	}

	if forwardErrored {
		return OutcomeInconclusive
	}

	// The address reverse-resolves, but to no operator-owned hostname
	// that maps back: it belongs to an unrelated owner.
	return OutcomeDenied
}

// operatorOwns reports whether the hostname's registrable domain is one
// of the operator suffixes. Comparing registrable domains (via the
// public suffix list) stops "googlebot.com.evil.example" from passing a
// naive suffix check.
func operatorOwns(hostname string, suffixes []string) bool {
	registrable, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		return false
	}
	for _, suffix := range suffixes {
		if registrable == suffix || strings.HasSuffix(hostname, "."+suffix) || hostname == suffix {
			return true
		}
	}
	return false
}

// StaticRangeVerifier verifies bot identity against a static table of
// operator address ranges. It never touches the network, which makes it
// the right capability for air-gapped analysis of historical logs.
type StaticRangeVerifier struct {
	ranges map[model.BotFamily][]netip.Prefix
}

// NewStaticRangeVerifier creates a verifier over the given ranges.
// Families with no ranges come back inconclusive rather than denied:
// an empty table is missing knowledge, not proof of spoofing.
func NewStaticRangeVerifier(ranges map[model.BotFamily][]netip.Prefix) *StaticRangeVerifier {
	return &StaticRangeVerifier{ranges: ranges}
}

// Verify implements Verifier.
func (v *StaticRangeVerifier) Verify(family model.BotFamily, clientAddr string) Outcome {
	prefixes, ok := v.ranges[family]
	if !ok || len(prefixes) == 0 {
		return OutcomeInconclusive
	}

	addr, err := netip.ParseAddr(clientAddr)
	if err != nil {
		return OutcomeInconclusive
	}

	for _, prefix := range prefixes {
		if prefix.Contains(addr) {
			return OutcomeConfirmed
		}
	}
	return OutcomeDenied
}
