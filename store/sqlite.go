// Package store keeps candles in SQLite and serves them as blocks.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/KDVMan/candlechart/market"
	"github.com/KDVMan/candlechart/window"
	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Insert stores candles for an instrument. Rows already present are kept;
// the result counts the new ones.
func (s *SQLite) Insert(ctx context.Context, instrument string, cs []market.Candle) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO candles
		(instrument, time_open, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, c := range cs {
		res, err := stmt.ExecContext(ctx, instrument, c.TimeOpen,
			nullable(c.Open), nullable(c.High), nullable(c.Low), nullable(c.Close), nullable(c.Volume))
		if err != nil {
			return 0, fmt.Errorf("insert %s@%d: %w", instrument, c.TimeOpen, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// Before returns up to limit candles at or before end, oldest first.
func (s *SQLite) Before(ctx context.Context, instrument string, end int64, limit int) ([]market.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time_open, open, high, low, close, volume
		FROM candles
		WHERE instrument = ? AND time_open <= ?
		ORDER BY time_open DESC
		LIMIT ?`, instrument, end, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Candle
	for rows.Next() {
		var (
			c                market.Candle
			o, h, l, cl, vol sql.NullFloat64
		)
		if err := rows.Scan(&c.TimeOpen, &o, &h, &l, &cl, &vol); err != nil {
			return nil, err
		}
		c.Open, c.High, c.Low, c.Close, c.Volume = value(o), value(h), value(l), value(cl), value(vol)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Span reports the stored time range and row count for an instrument.
func (s *SQLite) Span(ctx context.Context, instrument string) (first, last int64, n int, err error) {
	var lo, hi sql.NullInt64
	err = s.db.QueryRowContext(ctx, `
		SELECT MIN(time_open), MAX(time_open), COUNT(*)
		FROM candles
		WHERE instrument = ?`, instrument).Scan(&lo, &hi, &n)
	return lo.Int64, hi.Int64, n, err
}

// Fetcher serves one instrument in blocks of size block.
func (s *SQLite) Fetcher(instrument string, block int) window.Fetcher {
	if block <= 0 {
		block = window.DefaultBlockSize
	}
	return window.FetcherFunc(func(ctx context.Context, _ window.Direction, end int64) ([]market.Candle, error) {
		return s.Before(ctx, instrument, end, block)
	})
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func value(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
