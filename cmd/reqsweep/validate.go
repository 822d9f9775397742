package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reqsweep/reqsweep/config"
)

// validateCmd validates a config file without sending any requests.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a reqsweep configuration file without sending any requests.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  reqsweep validate -c reqsweep.yaml
  reqsweep validate --config /etc/reqsweep/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	opts, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	concurrency := "unbounded"
	if opts.Concurrency > 0 {
		concurrency = fmt.Sprintf("%d", opts.Concurrency)
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Timeout:     %ds\n", opts.Timeout)
	fmt.Printf("  Retries:     %d\n", opts.Retry)
	fmt.Printf("  Concurrency: %s\n", concurrency)
	fmt.Printf("  Format:      %s\n", opts.Format)
	fmt.Printf("  Headers:     %d\n", len(opts.Headers))

	return nil
}
