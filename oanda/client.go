// Package oanda downloads candles from the OANDA v20 REST API.
package oanda

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/KDVMan/candlechart/market"
)

const (
	// PracticeURL is the URL for OANDA's practice/demo environment
	PracticeURL = "https://api-fxpractice.oanda.com"
	// LiveURL is the URL for OANDA's live trading environment
	LiveURL = "https://api-fxtrade.oanda.com"

	// MaxCount is the most candles one request may ask for.
	MaxCount = 5000
)

var (
	ErrMissingToken   = errors.New("oanda: missing token")
	ErrMissingBaseURL = errors.New("oanda: missing base url")
)

// Granularity represents the time frame for candles
type Granularity string

const (
	S5  Granularity = "S5"
	S10 Granularity = "S10"
	S15 Granularity = "S15"
	S30 Granularity = "S30"
	M1  Granularity = "M1"
	M2  Granularity = "M2"
	M4  Granularity = "M4"
	M5  Granularity = "M5"
	M10 Granularity = "M10"
	M15 Granularity = "M15"
	M30 Granularity = "M30"
	H1  Granularity = "H1"
	H2  Granularity = "H2"
	H3  Granularity = "H3"
	H4  Granularity = "H4"
	H6  Granularity = "H6"
	H8  Granularity = "H8"
	H12 Granularity = "H12"
	D   Granularity = "D"
	W   Granularity = "W"
	M   Granularity = "M"
)

var granularityMs = map[Granularity]int64{
	S5: 5 * market.Second, S10: 10 * market.Second, S15: 15 * market.Second, S30: 30 * market.Second,
	M1: market.Minute, M2: 2 * market.Minute, M4: 4 * market.Minute, M5: 5 * market.Minute,
	M10: 10 * market.Minute, M15: 15 * market.Minute, M30: 30 * market.Minute,
	H1: market.Hour, H2: 2 * market.Hour, H3: 3 * market.Hour, H4: 4 * market.Hour,
	H6: 6 * market.Hour, H8: 8 * market.Hour, H12: 12 * market.Hour,
	D: market.Day, W: market.Week, M: market.Month,
}

// Duration is the nominal candle spacing in milliseconds.
func (g Granularity) Duration() (int64, bool) {
	ms, ok := granularityMs[g]
	return ms, ok
}

// PriceComponent represents the price component for candles
type PriceComponent string

const (
	MidPrice PriceComponent = "M"
	BidPrice PriceComponent = "B"
	AskPrice PriceComponent = "A"
)

// Client is a minimal OANDA REST client. A nil HTTP uses a client with a
// 30 second timeout.
type Client struct {
	BaseURL string // e.g. https://api-fxpractice.oanda.com
	Token   string
	HTTP    *http.Client
}

func NewClient(token string, practice bool) *Client {
	baseURL := LiveURL
	if practice {
		baseURL = PracticeURL
	}
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// BaseURL maps an environment name to its API root.
func BaseURL(env string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "practice", "demo":
		return PracticeURL, nil
	case "live", "trade":
		return LiveURL, nil
	default:
		return "", fmt.Errorf("unknown OANDA env %q (want practice|live)", env)
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 30 * time.Second}
}
