package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/relay/pkg/cli"
	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/providerfactory"
)

var validateFlags struct {
	format    string
	providers bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file, apply defaults and RELAY_* environment
overrides, and report every validation error.

Secret references (${secret:name}) in provider API keys are resolved.
With --providers the provider adapters are also built, which catches
problems such as a missing API key without contacting any upstream.

Examples:
  # Validate the default config.yaml
  relay validate

  # Validate a specific file and build the provider adapters
  relay validate --config /etc/relay/config.yaml --providers

  # Machine-readable report
  relay validate --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
	validateCmd.Flags().BoolVar(&validateFlags.providers, "providers", false, "also build provider adapters")
}

// validationReport is the result printed by the validate command.
type validationReport struct {
	Path      string   `json:"path"`
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors,omitempty"`
	Providers []string `json:"providers,omitempty"`
	Strategy  string   `json:"strategy,omitempty"`
	Cache     string   `json:"cache,omitempty"`
}

func (r validationReport) String() string {
	var sb strings.Builder
	if r.Valid {
		fmt.Fprintf(&sb, "✓ %s is valid\n", r.Path)
		fmt.Fprintf(&sb, "  Providers: %s\n", strings.Join(r.Providers, ", "))
		fmt.Fprintf(&sb, "  Strategy:  %s\n", r.Strategy)
		fmt.Fprintf(&sb, "  Cache:     %s\n", r.Cache)
		return sb.String()
	}
	fmt.Fprintf(&sb, "✗ %s is invalid (%d errors)\n", r.Path, len(r.Errors))
	for _, e := range r.Errors {
		fmt.Fprintf(&sb, "  - %s\n", e)
	}
	return sb.String()
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(validateFlags.format)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	report := buildValidationReport(ctx, cfgFile, validateFlags.providers)
	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report); err != nil {
		return err
	}

	if !report.Valid {
		return cli.NewConfigError("", fmt.Sprintf("%s failed validation", cfgFile))
	}
	return nil
}

func buildValidationReport(ctx context.Context, path string, buildProviders bool) validationReport {
	report := validationReport{Path: path}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			for _, fe := range verr.Errors {
				report.Errors = append(report.Errors, fe.Error())
			}
		} else {
			report.Errors = []string{err.Error()}
		}
		return report
	}

	if err := resolveSecrets(ctx, cfg); err != nil {
		report.Errors = append(report.Errors, err.Error())
		return report
	}

	if buildProviders {
		for _, id := range sortedKeys(cfg.Providers) {
			p, err := providerfactory.NewProvider(providerfactory.AdapterConfig(id, cfg.Providers[id]))
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("providers.%s: %v", id, err))
				continue
			}
			_ = p.Close()
		}
		if len(report.Errors) > 0 {
			return report
		}
	}

	report.Valid = true
	report.Providers = sortedKeys(cfg.Providers)
	report.Strategy = cfg.Routing.Strategy
	switch {
	case !cfg.Cache.Enabled:
		report.Cache = "disabled"
	case cfg.Cache.Shared.Backend == "none":
		report.Cache = "fast tier only"
	default:
		report.Cache = "fast tier + " + cfg.Cache.Shared.Backend
	}
	return report
}
