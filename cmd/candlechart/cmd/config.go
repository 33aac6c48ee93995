package cmd

import (
	"fmt"

	"github.com/KDVMan/candlechart/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage chart configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  candlechart config init -o chart.yaml
  candlechart config validate -f chart.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings.

Example:
  candlechart config init -o chart.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  candlechart config validate -f chart.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "chart.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and render with:")
	fmt.Fprintf(out, "  candlechart render -f %s -o chart.svg\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Sticks: %d..%d (block %d)\n", cfg.Chart.MinSticks, cfg.Chart.MaxSticks, cfg.Chart.BlockSize)
	fmt.Fprintf(out, "  Canvas: %dx%d @ %.0fpx\n", cfg.Canvas.Width, cfg.Canvas.Height, cfg.Canvas.FontSize)
	fmt.Fprintf(out, "  Source: %s %s\n", cfg.Source.Type, describeSource(cfg.Source))
	if cfg.Cache.Enabled {
		fmt.Fprintf(out, "  Cache: redis %s (ttl %s)\n", cfg.Cache.Addr, cfg.CacheTTL())
	}
	return nil
}

func describeSource(s config.SourceConfig) string {
	switch s.Type {
	case "csv":
		return s.Path
	case "sqlite":
		return fmt.Sprintf("%s [%s]", s.Path, s.Instrument)
	default:
		return fmt.Sprintf("%s %s", s.Instrument, s.Granularity)
	}
}
