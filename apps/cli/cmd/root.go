package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "hitscript",
	Short: "Replay recorded HTTP exchanges through their scripts.",
	Long: `hitscript runs the pre-request scripts and response handlers that
accompany recorded HTTP exchanges. Scripts use the client, request and
response objects, jsonPath and URLSearchParams, and share a session of
global variables across every exchange in a run.`,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitUsageError)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(jsonpathCmd)
}
