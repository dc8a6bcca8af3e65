// Package config holds the runtime configuration for the log analyzer.
//
// Configuration flows in two layers: CLI flags populate a flat Config
// struct, and an optional YAML profile file (.seolog) supplies the
// site-specific tuning that does not belong on the command line, such
// as custom crawler signatures, bot verification settings, and URL
// normalization rules.
package config
