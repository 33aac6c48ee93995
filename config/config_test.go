package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KDVMan/candlechart/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, 10, cfg.Chart.MinSticks)
	assert.Equal(t, 300, cfg.Chart.MaxSticks)
	assert.Equal(t, "csv", cfg.Source.Type)
	assert.Equal(t, render.DefaultStyles(), cfg.Styles)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	with := func(edit func(*Config)) *Config {
		cfg := Default()
		edit(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  Default(),
			wantErr: false,
		},
		{
			name:    "min above max",
			config:  with(func(c *Config) { c.Chart.MinSticks = 500 }),
			wantErr: true,
			errMsg:  "chart.min_sticks (500) exceeds chart.max_sticks (300)",
		},
		{
			name:    "max value percentage out of range",
			config:  with(func(c *Config) { c.Chart.MaxValPercentage = 1.5 }),
			wantErr: true,
			errMsg:  "chart.max_value_percentage must be in (0, 1]",
		},
		{
			name:    "bad fetch timeout",
			config:  with(func(c *Config) { c.Chart.FetchTimeout = "soon" }),
			wantErr: true,
			errMsg:  "chart.fetch_timeout",
		},
		{
			name:    "zero canvas",
			config:  with(func(c *Config) { c.Canvas.Width = 0 }),
			wantErr: true,
			errMsg:  "canvas width and height must be positive",
		},
		{
			name:    "zero font size",
			config:  with(func(c *Config) { c.Canvas.FontSize = 0 }),
			wantErr: true,
			errMsg:  "canvas.font_size must be positive",
		},
		{
			name:    "unknown source",
			config:  with(func(c *Config) { c.Source.Type = "ftp" }),
			wantErr: true,
			errMsg:  "source.type must be",
		},
		{
			name:    "csv without path",
			config:  with(func(c *Config) { c.Source.Path = "" }),
			wantErr: true,
			errMsg:  "source.path required for csv type",
		},
		{
			name: "sqlite without instrument",
			config: with(func(c *Config) {
				c.Source = SourceConfig{Type: "sqlite", Path: "candles.db"}
			}),
			wantErr: true,
			errMsg:  "source.instrument is required",
		},
		{
			name: "oanda bad granularity",
			config: with(func(c *Config) {
				c.Source = SourceConfig{Type: "oanda", Instrument: "EUR_USD", Granularity: "M7", Env: "practice"}
			}),
			wantErr: true,
			errMsg:  `source.granularity "M7"`,
		},
		{
			name: "oanda bad env",
			config: with(func(c *Config) {
				c.Source = SourceConfig{Type: "oanda", Instrument: "EUR_USD", Granularity: "M1", Env: "sandbox"}
			}),
			wantErr: true,
			errMsg:  "source.env",
		},
		{
			name: "oanda with base url",
			config: with(func(c *Config) {
				c.Source = SourceConfig{Type: "oanda", Instrument: "EUR_USD", Granularity: "H1", BaseURL: "http://localhost"}
			}),
			wantErr: false,
		},
		{
			name: "cache without addr",
			config: with(func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.Addr = ""
			}),
			wantErr: true,
			errMsg:  "cache.addr required",
		},
		{
			name: "cache bad ttl",
			config: with(func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.TTL = "-1m"
			}),
			wantErr: true,
			errMsg:  "cache.ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Chart.MaxSticks = 120
			cfg.Styles.Up = "#123456"
			cfg.Source.Token = "secret"
			path := filepath.Join(tmpDir, "test"+tt.ext)

			err := cfg.SaveToFile(path)
			require.NoError(t, err)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.NotContains(t, string(data), "secret")

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, 120, loaded.Chart.MaxSticks)
			assert.Equal(t, "#123456", loaded.Styles.Up)
			assert.Equal(t, cfg.Canvas, loaded.Canvas)
			assert.Equal(t, cfg.Source.Path, loaded.Source.Path)
			assert.Empty(t, loaded.Source.Token)
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chart:\n  max_sticks: 50\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Chart.MaxSticks)
	assert.Equal(t, 10, cfg.Chart.MinSticks)
	assert.Equal(t, 1280, cfg.Canvas.Width)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chart:\n  min_sticks: -3\n"), 0644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "chart.min_sticks must not be negative")
}

func TestChartOptions(t *testing.T) {
	cfg := Default()
	cfg.Chart.FetchTimeout = "5s"
	opts := cfg.ChartOptions()
	assert.Equal(t, 10, opts.MinSticks)
	assert.Equal(t, 300, opts.MaxSticks)
	assert.Equal(t, 5*time.Second, opts.FetchTimeout)
	assert.Equal(t, 2000, opts.BlockSize)
	assert.True(t, opts.CaptureCursor)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL())
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OANDA_TOKEN=from-file\nREDIS_DB=3\n"), 0644))

	t.Setenv("OANDA_TOKEN", "")
	os.Unsetenv("OANDA_TOKEN")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "")
	os.Unsetenv("REDIS_DB")

	require.NoError(t, LoadEnv(path))

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "from-file", cfg.Source.Token)
	assert.Equal(t, "redis:6380", cfg.Cache.Addr)
	assert.Equal(t, 3, cfg.Cache.DB)

	assert.Error(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))
}
