package market

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// RawCandle is a data point as delivered by an external source: fields may be
// numbers, numeric strings or garbage. Parse turns it into a typed Candle.
type RawCandle struct {
	TimeOpen any `json:"timeOpen"`
	Open     any `json:"priceOpen"`
	High     any `json:"priceHigh"`
	Low      any `json:"priceLow"`
	Close    any `json:"priceClose"`
	Volume   any `json:"volume"`
}

// Parse converts the raw fields. Price and volume fields that fail to parse
// become NaN; only an unusable timestamp is an error.
func (r RawCandle) Parse() (Candle, error) {
	ts, err := ParseTime(r.TimeOpen)
	if err != nil {
		return Candle{}, err
	}
	return Candle{
		TimeOpen: ts,
		Open:     ParseFloat(r.Open),
		High:     ParseFloat(r.High),
		Low:      ParseFloat(r.Low),
		Close:    ParseFloat(r.Close),
		Volume:   ParseFloat(r.Volume),
	}, nil
}

// ParseFloat converts a number or numeric string. Anything else is NaN.
func ParseFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// ParseTime accepts unix milliseconds (number or numeric string), RFC3339 text
// or a time.Time and returns unix milliseconds.
func ParseTime(v any) (int64, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UnixMilli(), nil
	case string:
		s := strings.TrimSpace(x)
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ms, nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, fmt.Errorf("bad timestamp %q: %w", s, err)
		}
		return t.UnixMilli(), nil
	}
	f := ParseFloat(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("bad timestamp %v", v)
	}
	return int64(f), nil
}

// ParseAll parses raw candles, dropping (and counting) those without a usable timestamp.
func ParseAll(raw []RawCandle) (cs []Candle, bad int) {
	cs = make([]Candle, 0, len(raw))
	for _, r := range raw {
		c, err := r.Parse()
		if err != nil {
			bad++
			continue
		}
		cs = append(cs, c)
	}
	return cs, bad
}
