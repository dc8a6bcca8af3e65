// Package parser converts raw access-log lines into typed records.
//
// The package has two responsibilities:
//   - Format detection: probing the first lines of a source against a
//     small set of field-layout patterns and locking one layout for the
//     whole source.
//   - Line parsing: converting a single line, against the locked
//     layout, into a model.LogRecord or a model.ParseFailure.
//
// Parsing is a pure function: no logging, no IO, diagnostics are
// returned, never thrown. A malformed line produces exactly one
// ParseFailure and never a partial record.
package parser
