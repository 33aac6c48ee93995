package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/KDVMan/candlechart/market"
	"github.com/KDVMan/candlechart/oanda"
	"github.com/KDVMan/candlechart/store"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download OANDA candles to CSV or SQLite",
	Long: `Download historical candles from OANDA.

Requires an OANDA API token (--token, OANDA_TOKEN, or the --env-file).
Without --from/--to the newest --count candles are fetched.

Examples:
  candlechart download -i EUR_USD -g M1 --count 5000 -o eurusd.csv
  candlechart download -i EUR_USD -g H1 --from 2024-01-01T00:00:00Z --db candles.sqlite`,
	RunE: runDownload,
}

var (
	dlEnv         string
	dlToken       string
	dlInstrument  string
	dlGranularity string
	dlPrice       string
	dlFrom        string
	dlTo          string
	dlCount       int
	dlOut         string
	dlDB          string
	dlIncomplete  bool
)

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVar(&dlEnv, "env", "practice", "OANDA environment: practice or live")
	downloadCmd.Flags().StringVar(&dlToken, "token", "", "OANDA personal access token (or set OANDA_TOKEN env var)")
	downloadCmd.Flags().StringVarP(&dlInstrument, "instrument", "i", "EUR_USD", "instrument, e.g. EUR_USD")
	downloadCmd.Flags().StringVarP(&dlGranularity, "granularity", "g", "M1", "candle granularity, e.g. M1, H1, D")
	downloadCmd.Flags().StringVar(&dlPrice, "price", "M", "price component: M (mid), B (bid) or A (ask)")
	downloadCmd.Flags().StringVar(&dlFrom, "from", "", "RFC3339 start time")
	downloadCmd.Flags().StringVar(&dlTo, "to", "", "RFC3339 end time")
	downloadCmd.Flags().IntVar(&dlCount, "count", 500, "number of candles (max 5000; ignored when both --from and --to are set)")
	downloadCmd.Flags().StringVarP(&dlOut, "out", "o", "", "output CSV path")
	downloadCmd.Flags().StringVar(&dlDB, "db", "", "SQLite store to insert into")
	downloadCmd.Flags().BoolVar(&dlIncomplete, "include-incomplete", false, "keep the still-forming newest candle")
}

func runDownload(cmd *cobra.Command, args []string) error {
	if dlOut == "" && dlDB == "" {
		return fmt.Errorf("nothing to do: pass --out and/or --db")
	}
	if dlToken == "" {
		dlToken = os.Getenv("OANDA_TOKEN")
	}
	client, err := oandaClient(dlEnv, os.Getenv("OANDA_BASE_URL"), dlToken)
	if err != nil {
		return err
	}

	opts := oanda.CandlesOptions{
		Instrument:        dlInstrument,
		Granularity:       oanda.Granularity(strings.ToUpper(dlGranularity)),
		Price:             oanda.PriceComponent(strings.ToUpper(dlPrice)),
		IncludeIncomplete: dlIncomplete,
	}
	if dlFrom != "" {
		if opts.From, err = time.Parse(time.RFC3339, dlFrom); err != nil {
			return fmt.Errorf("bad --from: %w", err)
		}
	}
	if dlTo != "" {
		if opts.To, err = time.Parse(time.RFC3339, dlTo); err != nil {
			return fmt.Errorf("bad --to: %w", err)
		}
	}
	if !opts.From.IsZero() && !opts.To.IsZero() {
		if !opts.From.Before(opts.To) {
			return fmt.Errorf("--from must be before --to")
		}
	} else {
		opts.Count = dlCount
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Downloading %s %s candles...\n", dlInstrument, opts.Granularity)

	cs, err := client.Candles(ctx, opts)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	if dlOut != "" {
		f, err := os.Create(dlOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		if err := market.WriteCSV(f, cs); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		fmt.Fprintf(out, "Wrote %d candles to %s\n", len(cs), dlOut)
	}

	if dlDB != "" {
		db, err := store.Open(dlDB)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		n, err := db.Insert(ctx, dlInstrument, cs)
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		fmt.Fprintf(out, "Stored %d new candles in %s\n", n, dlDB)
	}
	return nil
}
