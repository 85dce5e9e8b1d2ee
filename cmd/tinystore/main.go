// Package main is the entry point for the tinystore CLI.
//
// The binary drives a store made of named counters, configured by a YAML
// file, either as a one-shot replay of a script of actions or as a
// long-running inspector server.
//
// Usage:
//
//	tinystore replay -c config.yaml    # Dispatch the script and print each state
//	tinystore serve -c config.yaml     # Start the inspector
//	tinystore validate -c config.yaml  # Validate configuration
//	tinystore version                  # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "tinystore",
	Short: "A minimal observable state container",
	Long: `tinystore drives a Redux-style state container built from named counters.

Every dispatched action runs through the reducer and then notifies all
listeners, including for malformed actions that carry no type.

Quick start:
  1. Create a config file (tinystore.yaml)
  2. Run: tinystore replay -c tinystore.yaml
  3. Or:  tinystore serve -c tinystore.yaml and open http://localhost:8080

Example config:
  port: 8080
  counters: [bugs, projects, users]
  script:
    - type: bugs/inc
    - type: users/inc
      payload: 2`,
	SilenceUsage: true,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this tinystore binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "tinystore %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringSlice("env-file", nil, "dotenv files to load before reading the config (default .env)")
}
