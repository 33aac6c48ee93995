package oanda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/KDVMan/candlechart/market"
	"github.com/KDVMan/candlechart/window"
)

type CandlesOptions struct {
	Instrument  string
	Granularity Granularity
	Price       PriceComponent // M, B or A; empty means M

	From  time.Time // optional
	To    time.Time // optional
	Count int       // optional (used if >0)

	// IncludeIncomplete keeps the still-forming newest candle.
	IncludeIncomplete bool
}

type ohlc struct {
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

type candlesResp struct {
	Instrument  string `json:"instrument"`
	Granularity string `json:"granularity"`
	Candles     []struct {
		Complete bool        `json:"complete"`
		Time     string      `json:"time"`
		Volume   json.Number `json:"volume"`

		Mid *ohlc `json:"mid,omitempty"`
		Bid *ohlc `json:"bid,omitempty"`
		Ask *ohlc `json:"ask,omitempty"`
	} `json:"candles"`
}

// Candles downloads candles oldest first. Prices that do not parse become
// NaN; candles with an unusable time are dropped.
func (c *Client) Candles(ctx context.Context, opts CandlesOptions) ([]market.Candle, error) {
	if c.Token == "" {
		return nil, ErrMissingToken
	}
	if c.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if opts.Instrument == "" {
		return nil, fmt.Errorf("oanda: missing instrument")
	}
	if opts.Granularity == "" {
		return nil, fmt.Errorf("oanda: missing granularity")
	}
	if opts.Count > MaxCount {
		return nil, fmt.Errorf("oanda: count %d exceeds %d", opts.Count, MaxCount)
	}
	price := PriceComponent(strings.ToUpper(strings.TrimSpace(string(opts.Price))))
	switch price {
	case "":
		price = MidPrice
	case MidPrice, BidPrice, AskPrice:
	default:
		return nil, fmt.Errorf("oanda: price=%s not supported; use M/B/A", price)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	u.Path = fmt.Sprintf("/v3/instruments/%s/candles", opts.Instrument)

	q := u.Query()
	q.Set("granularity", string(opts.Granularity))
	q.Set("price", string(price))
	if opts.Count > 0 {
		q.Set("count", strconv.Itoa(opts.Count))
	}
	if !opts.From.IsZero() {
		q.Set("from", opts.From.UTC().Format(time.RFC3339Nano))
	}
	if !opts.To.IsZero() {
		q.Set("to", opts.To.UTC().Format(time.RFC3339Nano))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("oanda candles http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var cr candlesResp
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&cr); err != nil {
		return nil, fmt.Errorf("oanda: decode candles: %w", err)
	}

	raw := make([]market.RawCandle, 0, len(cr.Candles))
	for _, cd := range cr.Candles {
		if !cd.Complete && !opts.IncludeIncomplete {
			continue
		}
		var p *ohlc
		switch price {
		case MidPrice:
			p = cd.Mid
		case BidPrice:
			p = cd.Bid
		case AskPrice:
			p = cd.Ask
		}
		if p == nil {
			continue
		}
		raw = append(raw, market.RawCandle{
			TimeOpen: cd.Time,
			Open:     p.O,
			High:     p.H,
			Low:      p.L,
			Close:    p.C,
			Volume:   cd.Volume,
		})
	}

	cs, _ := market.ParseAll(raw)
	market.SortByTime(cs)
	return cs, nil
}

// DownloadCandlesToCSV writes candles in the canonical CSV layout.
func (c *Client) DownloadCandlesToCSV(ctx context.Context, opts CandlesOptions, w io.Writer) (int, error) {
	cs, err := c.Candles(ctx, opts)
	if err != nil {
		return 0, err
	}
	if err := market.WriteCSV(w, cs); err != nil {
		return 0, err
	}
	return len(cs), nil
}

// Source serves chart blocks from OANDA: the newest Block candles before
// the requested end time.
type Source struct {
	Client      *Client
	Instrument  string
	Granularity Granularity
	Price       PriceComponent
	Block       int

	// Now bounds the request end; OANDA rejects end times in the future.
	Now func() time.Time
}

var _ window.Fetcher = (*Source)(nil)

func (s *Source) Fetch(ctx context.Context, _ window.Direction, endTime int64) ([]market.Candle, error) {
	count := s.Block
	if count <= 0 || count > MaxCount {
		count = MaxCount
	}
	opts := CandlesOptions{
		Instrument:  s.Instrument,
		Granularity: s.Granularity,
		Price:       s.Price,
		Count:       count,
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	// +1 keeps a candle opening exactly at endTime
	if to := time.UnixMilli(endTime + 1); to.Before(now()) {
		opts.To = to
	}
	return s.Client.Candles(ctx, opts)
}
