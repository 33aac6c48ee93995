package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/KDVMan/candlechart/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "candlechart",
	Short: "Render and feed interactive candlestick charts",
	Long: `Candlechart drives the chart core from the command line.

It provides tools for:
  - Rendering a chart to SVG from CSV, SQLite or OANDA data
  - Replaying zoom, pan and selection gestures before rendering
  - Importing candle CSV files into a SQLite store
  - Downloading candles from OANDA
  - Generating and validating chart configuration files`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = log.New(os.Stderr, "", log.LstdFlags)
		if envFile == "" {
			return nil
		}
		if err := config.LoadEnv(envFile); err != nil {
			// a missing .env is normal outside development
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Printf("warning: %v", err)
			}
		}
		return nil
	},
}

var (
	envFile string
	logger  = log.Default()
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with OANDA_TOKEN and REDIS_* settings")
}
