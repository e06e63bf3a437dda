package cmd

// Exit codes for hitscript CLI
const (
	// ExitSuccess indicates every exchange passed
	ExitSuccess = 0

	// ExitTestFailure indicates a failed test or a script error
	ExitTestFailure = 1

	// ExitParseError indicates a fixture that could not be loaded
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitInterrupted indicates the run was cancelled by a signal
	ExitInterrupted = 130

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
