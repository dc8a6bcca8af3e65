// Package main provides the entry point for the seolog CLI.
//
// seolog analyzes web server access logs from an SEO perspective.
// It measures how search engine crawlers spend their crawl budget,
// detects spoofed bots, and flags crawl traps.
//
// Usage:
//
//	seolog analyze access.log
//	seolog analyze --merge jan.log feb.log
//
// See --help for all available options.
package main

// main is the entry point for seolog.
func main() {
	Execute()
}
