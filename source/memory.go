// Package source serves candle blocks from data held in memory.
package source

import (
	"context"
	"fmt"
	"sort"

	"github.com/KDVMan/candlechart/market"
	"github.com/KDVMan/candlechart/window"
)

// Memory answers block requests from a sorted candle slice. It is read-only
// after construction and safe for use from the fetch goroutine.
type Memory struct {
	candles []market.Candle
	block   int
}

var _ window.Fetcher = (*Memory)(nil)

// NewMemory copies, sorts and de-duplicates cs.
func NewMemory(cs []market.Candle, block int) *Memory {
	if block <= 0 {
		block = window.DefaultBlockSize
	}
	data := make([]market.Candle, len(cs))
	copy(data, cs)
	return &Memory{candles: market.Dedupe(data), block: block}
}

// LoadCSV reads a candle CSV file into a Memory source.
func LoadCSV(path string, block int) (*Memory, market.IngestStats, error) {
	cs, stats, err := market.ReadCSVFile(path)
	if err != nil {
		return nil, stats, fmt.Errorf("load %s: %w", path, err)
	}
	return NewMemory(cs, block), stats, nil
}

func (m *Memory) Len() int { return len(m.candles) }

// Fetch returns the newest block candles at or before endTime. The
// direction does not matter: the window trims whatever it already holds.
func (m *Memory) Fetch(ctx context.Context, _ window.Direction, endTime int64) ([]market.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hi := sort.Search(len(m.candles), func(i int) bool { return m.candles[i].TimeOpen > endTime })
	lo := hi - m.block
	if lo < 0 {
		lo = 0
	}
	out := make([]market.Candle, hi-lo)
	copy(out, m.candles[lo:hi])
	return out, nil
}

// Latest returns the newest n candles.
func (m *Memory) Latest(n int) []market.Candle {
	if n > len(m.candles) || n <= 0 {
		n = len(m.candles)
	}
	out := make([]market.Candle, n)
	copy(out, m.candles[len(m.candles)-n:])
	return out
}
