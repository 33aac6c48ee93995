package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KDVMan/candlechart/cache"
	"github.com/KDVMan/candlechart/config"
	"github.com/KDVMan/candlechart/oanda"
	"github.com/KDVMan/candlechart/source"
	"github.com/KDVMan/candlechart/store"
	"github.com/KDVMan/candlechart/window"
)

// feed is a configured candle source plus whatever must be closed after use.
type feed struct {
	window.Fetcher
	closers []func() error
}

func (f *feed) Close() error {
	var errs []error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func openFeed(cfg *config.Config) (*feed, error) {
	f := &feed{}
	block := cfg.Chart.BlockSize

	switch cfg.Source.Type {
	case "csv":
		mem, stats, err := source.LoadCSV(cfg.Source.Path, block)
		if err != nil {
			return nil, err
		}
		logger.Printf("source: %s: %d rows, %d bad lines, %d duplicates", cfg.Source.Path, stats.Rows, stats.BadLines, stats.Duplicates)
		f.Fetcher = mem

	case "sqlite":
		db, err := store.Open(cfg.Source.Path)
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, db.Close)
		f.Fetcher = db.Fetcher(cfg.Source.Instrument, block)

	case "oanda":
		client, err := oandaClient(cfg.Source.Env, cfg.Source.BaseURL, cfg.Source.Token)
		if err != nil {
			return nil, err
		}
		f.Fetcher = &oanda.Source{
			Client:      client,
			Instrument:  cfg.Source.Instrument,
			Granularity: oanda.Granularity(cfg.Source.Granularity),
			Price:       oanda.PriceComponent(strings.ToUpper(cfg.Source.Price)),
			Block:       block,
		}

	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}

	if cfg.Cache.Enabled {
		rc := cache.NewClient(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
		f.closers = append(f.closers, rc.Close)
		f.Fetcher = cache.New(rc, f.Fetcher, cache.Options{
			Prefix: cachePrefix(cfg.Source),
			TTL:    cfg.CacheTTL(),
		}, logger)
	}
	return f, nil
}

func oandaClient(env, baseURL, token string) (*oanda.Client, error) {
	if token == "" {
		return nil, fmt.Errorf("missing token: pass --token or set OANDA_TOKEN")
	}
	if baseURL == "" {
		var err error
		if baseURL, err = oanda.BaseURL(env); err != nil {
			return nil, err
		}
	}
	return &oanda.Client{BaseURL: baseURL, Token: token}, nil
}

func cachePrefix(s config.SourceConfig) string {
	switch s.Type {
	case "oanda":
		return fmt.Sprintf("candlechart:oanda:%s:%s:%s:", s.Instrument, s.Granularity, strings.ToUpper(s.Price))
	case "sqlite":
		return fmt.Sprintf("candlechart:sqlite:%s:%s:", s.Path, s.Instrument)
	default:
		return fmt.Sprintf("candlechart:%s:%s:", s.Type, s.Path)
	}
}
