// Package model defines the core data structures used throughout the
// seo-log-analyzer.
//
// This package contains the following main types:
//   - LogRecord: One parsed access-log line
//   - ParseFailure: A line that could not be parsed, with the reason
//   - AgentIdentity: Bot classification attached to a record
//   - CrawlTrapFinding: A URL pattern absorbing disproportionate crawl budget
//   - AnalysisSummary: The read-only result of a full analysis run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (parser, classifier, aggregate, trap, report)
// need to use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage; all enums marshal to their string names so exported
// summaries round-trip exactly.
package model
