package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// validateCmd validates a config file without running anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a tinystore configuration file without dispatching anything.

This command loads .env files, parses the YAML, expands environment
variables in string fields and validates all fields. It's useful for CI/CD pipelines or
pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  tinystore validate -c config.yaml
  tinystore validate --config /etc/tinystore/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	malformed := cfg.MalformedCount()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Title:    %s\n", cfg.Title)
	fmt.Fprintf(out, "  Port:     %d\n", cfg.Port)
	fmt.Fprintf(out, "  Counters: %s\n", strings.Join(cfg.Counters, ", "))
	fmt.Fprintf(out, "  Script:   %d actions (%d without a type)\n", len(cfg.Script), malformed)

	return nil
}
