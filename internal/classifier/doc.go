// Package classifier assigns an AgentIdentity to each log record based
// on its user-agent string and client address.
//
// Classification is a two-stage decision:
//   - Signature matching: the user agent is matched against an ordered
//     table of known crawler signatures; the longest matching token
//     wins. Unmatched agents become HUMAN (browser-looking strings) or
//     UNKNOWN.
//   - Authenticity verification: when a Verifier capability is
//     supplied, the client address is checked against the claimed bot
//     operator (reverse DNS with forward confirmation, or a static
//     address-range table). Without a capability, bots are always
//     UNVERIFIED and never VERIFIED.
//
// The classifier never fails: the worst case is an UNKNOWN/UNVERIFIED
// identity. Crawl-budget analysis must proceed even with imperfect
// identity data, so a missed fake bot is preferred over a blocked run.
package classifier
