// Package cli wires together the Cobra command tree for the flowscribe binary.
//
// It defines the root command and all subcommands (generate, config, models,
// cache, version), binds flags, reads configuration, runs the report
// pipeline, and returns deterministic exit codes.
package cli
