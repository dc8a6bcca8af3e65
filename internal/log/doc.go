// Package log provides privacy-aware logging built on top of the
// standard slog package.
//
// Access logs contain visitor IP addresses, which are personal data in
// most jurisdictions. The analyzer's own diagnostic output must not
// leak them: a debug log line quoting a raw log record would otherwise
// copy visitor addresses into a second, longer-lived log.
//
// The MaskingHandler anonymizes addresses in log output:
//   - Attribute keys naming a client address (client_addr, remote_addr,
//     ip, and similar) have their values anonymized
//   - String values that parse as IP addresses are anonymized
//     regardless of key name
//
// Anonymization zeroes the host portion of the address (the last octet
// for IPv4, the low 80 bits for IPv6), matching the truncation used by
// common web-analytics IP anonymizers. The network prefix stays intact
// so operators can still recognize traffic origins at a coarse level.
//
// # Usage
//
//	logger := log.NewMaskingLogger(os.Stderr, verbose)
//	logger.Debug("skipping malformed line",
//	    "client_addr", "203.0.113.77", // logged as 203.0.113.0
//	    "line", 42,
//	)
//	slog.SetDefault(logger)
package log
