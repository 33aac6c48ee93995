package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/KDVMan/candlechart/chart"
	"github.com/KDVMan/candlechart/oanda"
	"github.com/KDVMan/candlechart/render"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete chart configuration
type Config struct {
	Chart  ChartConfig   `json:"chart" yaml:"chart"`
	Canvas CanvasConfig  `json:"canvas" yaml:"canvas"`
	Styles render.Styles `json:"styles" yaml:"styles"`
	Source SourceConfig  `json:"source" yaml:"source"`
	Cache  CacheConfig   `json:"cache" yaml:"cache"`
}

// ChartConfig contains scale constraints and fetch behaviour
type ChartConfig struct {
	MinSticks        int     `json:"min_sticks" yaml:"min_sticks"`
	MaxSticks        int     `json:"max_sticks" yaml:"max_sticks"`
	MaxValPercentage float64 `json:"max_value_percentage" yaml:"max_value_percentage"`
	GapSize          float64 `json:"gap_size" yaml:"gap_size"`
	BlockSize        int     `json:"block_size" yaml:"block_size"`
	CaptureCursor    bool    `json:"capture_cursor" yaml:"capture_cursor"`
	FetchTimeout     string  `json:"fetch_timeout,omitempty" yaml:"fetch_timeout,omitempty"` // e.g. "10s"
}

// CanvasConfig sizes the rendered image
type CanvasConfig struct {
	Width    int     `json:"width" yaml:"width"`
	Height   int     `json:"height" yaml:"height"`
	FontSize float64 `json:"font_size" yaml:"font_size"`
}

// SourceConfig selects where candles come from
type SourceConfig struct {
	Type        string `json:"type" yaml:"type"` // "csv", "sqlite" or "oanda"
	Path        string `json:"path,omitempty" yaml:"path,omitempty"`
	Instrument  string `json:"instrument,omitempty" yaml:"instrument,omitempty"`
	Granularity string `json:"granularity,omitempty" yaml:"granularity,omitempty"`
	Price       string `json:"price,omitempty" yaml:"price,omitempty"`
	Env         string `json:"env,omitempty" yaml:"env,omitempty"` // practice or live
	BaseURL     string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Token comes from OANDA_TOKEN, never from the file.
	Token string `json:"-" yaml:"-"`
}

// CacheConfig enables the Redis block cache
type CacheConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr,omitempty" yaml:"addr,omitempty"`
	DB      int    `json:"db,omitempty" yaml:"db,omitempty"`
	TTL     string `json:"ttl,omitempty" yaml:"ttl,omitempty"` // e.g. "10m"

	Password string `json:"-" yaml:"-"`
}

// LoadFromFile loads configuration from a file (JSON or YAML)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// LoadEnv reads a .env file into the process environment. Variables that
// are already set win.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays secrets and endpoints from the environment.
func (c *Config) ApplyEnv() {
	c.Source.Token = getEnv("OANDA_TOKEN", c.Source.Token)
	c.Source.BaseURL = getEnv("OANDA_BASE_URL", c.Source.BaseURL)
	c.Cache.Addr = getEnv("REDIS_ADDR", c.Cache.Addr)
	c.Cache.Password = getEnv("REDIS_PASSWORD", c.Cache.Password)
	c.Cache.DB = getEnvInt("REDIS_DB", c.Cache.DB)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.ChartOptions().Validate(); err != nil {
		return err
	}
	if _, err := parseDuration(c.Chart.FetchTimeout); err != nil {
		return fmt.Errorf("chart.fetch_timeout: %w", err)
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas width and height must be positive")
	}
	if c.Canvas.FontSize <= 0 {
		return fmt.Errorf("canvas.font_size must be positive")
	}
	switch c.Source.Type {
	case "csv", "sqlite":
		if c.Source.Path == "" {
			return fmt.Errorf("source.path required for %s type", c.Source.Type)
		}
	case "oanda":
		if _, ok := oanda.Granularity(c.Source.Granularity).Duration(); !ok {
			return fmt.Errorf("source.granularity %q is not a known OANDA granularity", c.Source.Granularity)
		}
		if c.Source.BaseURL == "" {
			if _, err := oanda.BaseURL(c.Source.Env); err != nil {
				return fmt.Errorf("source.env: %w", err)
			}
		}
	default:
		return fmt.Errorf("source.type must be 'csv', 'sqlite' or 'oanda'")
	}
	if c.Source.Type != "csv" && c.Source.Instrument == "" {
		return fmt.Errorf("source.instrument is required")
	}
	if c.Cache.Enabled {
		if c.Cache.Addr == "" {
			return fmt.Errorf("cache.addr required when cache is enabled")
		}
		if _, err := parseDuration(c.Cache.TTL); err != nil {
			return fmt.Errorf("cache.ttl: %w", err)
		}
	}
	return nil
}

// ChartOptions converts the chart section. The fetcher is left to the caller.
func (c *Config) ChartOptions() chart.Options {
	timeout, _ := parseDuration(c.Chart.FetchTimeout)
	return chart.Options{
		MinSticks:        c.Chart.MinSticks,
		MaxSticks:        c.Chart.MaxSticks,
		MaxValPercentage: c.Chart.MaxValPercentage,
		GapSizeDesired:   c.Chart.GapSize,
		BlockSize:        c.Chart.BlockSize,
		CaptureCursor:    c.Chart.CaptureCursor,
		FetchTimeout:     timeout,
		Styles:           c.Styles,
	}
}

// CacheTTL returns the parsed cache TTL, 0 when unset.
func (c *Config) CacheTTL() time.Duration {
	ttl, _ := parseDuration(c.Cache.TTL)
	return ttl
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Chart: ChartConfig{
			MinSticks:        10,
			MaxSticks:        300,
			MaxValPercentage: 0.2,
			GapSize:          1,
			BlockSize:        2000,
			CaptureCursor:    true,
			FetchTimeout:     "30s",
		},
		Canvas: CanvasConfig{
			Width:    1280,
			Height:   720,
			FontSize: 12,
		},
		Styles: render.DefaultStyles(),
		Source: SourceConfig{
			Type: "csv",
			Path: "./candles.csv",
		},
		Cache: CacheConfig{
			Addr: "localhost:6379",
			TTL:  "10m",
		},
	}
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
