// Package cmd implements the hitscript CLI commands using Cobra.
//
// Available commands:
//   - run: Replay recorded exchanges through their scripts
//   - validate: Check fixtures and compile scripts without running them
//   - list: Display every exchange defined in fixtures
//   - init: Create a sample fixture and config
//   - jsonpath: Evaluate a JSONPath expression against a document
//   - version: Show hitscript version information
//
// Flags fall back to HITSCRIPT_* environment variables, and settings not
// given on the command line come from the config file.
package cmd
