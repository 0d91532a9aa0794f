package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/relay/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Mercator Relay - multi-provider LLM router with a tiered response cache",
	Long: `Mercator Relay routes LLM chat completion requests across several upstream
providers and caches their responses.

It acts as an HTTP endpoint for OpenAI-shaped requests, providing:
  - Round-robin, failover, least-latency and cost-optimized routing
  - Per-provider circuit breakers and retries with exponential backoff
  - Fallback across providers under a single request deadline
  - An in-process LRU cache backed by an optional redis or sqlite tier
  - Per-request cost and cache metadata, Prometheus metrics`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a status derived from the
// returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
