package cmd

import (
	"fmt"
	"time"

	"github.com/KDVMan/candlechart/market"
	"github.com/KDVMan/candlechart/store"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a candle CSV file into a SQLite store",
	Long: `Import reads a CSV in the time_open,open,high,low,close,volume layout and
stores it under an instrument name. Candles already stored are kept.

Example:
  candlechart import --csv eurusd_m1.csv --db candles.sqlite -i EUR_USD`,
	RunE: runImport,
}

var (
	importCSV        string
	importDB         string
	importInstrument string
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importCSV, "csv", "", "path to candle CSV (required)")
	importCmd.Flags().StringVarP(&importDB, "db", "d", "./candles.sqlite", "path to SQLite store")
	importCmd.Flags().StringVarP(&importInstrument, "instrument", "i", "EUR_USD", "instrument to store the candles under")

	importCmd.MarkFlagRequired("csv")
}

func runImport(cmd *cobra.Command, args []string) error {
	cs, stats, err := market.ReadCSVFile(importCSV)
	if err != nil {
		return err
	}

	db, err := store.Open(importDB)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	n, err := db.Insert(ctx, importInstrument, cs)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d new candles into %s [%s]\n", n, importDB, importInstrument)
	fmt.Fprintf(out, "  CSV rows: %d (bad %d, duplicate %d)\n", stats.Rows, stats.BadLines, stats.Duplicates)

	first, last, total, err := db.Span(ctx, importInstrument)
	if err != nil {
		return err
	}
	if total > 0 {
		fmt.Fprintf(out, "  Stored: %d candles, %s .. %s\n", total,
			time.UnixMilli(first).UTC().Format(time.RFC3339), time.UnixMilli(last).UTC().Format(time.RFC3339))
	}
	return nil
}
