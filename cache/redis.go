// Package cache keeps fetched candle blocks in Redis so that panning back
// over a range does not hit the upstream source again.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/KDVMan/candlechart/market"
	"github.com/KDVMan/candlechart/window"
	"github.com/go-redis/redis/v8"
)

const DefaultTTL = 10 * time.Minute

type Options struct {
	Prefix string // key namespace, e.g. "candlechart:EUR_USD:M1:"
	TTL    time.Duration
}

// Redis is a window.Fetcher that answers from Redis and falls back to the
// wrapped fetcher. Cache failures are logged, never returned.
type Redis struct {
	client *redis.Client
	next   window.Fetcher
	prefix string
	ttl    time.Duration
	log    *log.Logger
}

var _ window.Fetcher = (*Redis)(nil)

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func New(client *redis.Client, next window.Fetcher, opts Options, logger *log.Logger) *Redis {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Prefix == "" {
		opts.Prefix = "candlechart:"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Redis{
		client: client,
		next:   next,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		log:    logger,
	}
}

func (c *Redis) key(end int64) string {
	return fmt.Sprintf("%sblock:%d", c.prefix, end)
}

func (c *Redis) Fetch(ctx context.Context, dir window.Direction, endTime int64) ([]market.Candle, error) {
	key := c.key(endTime)

	cs, err := c.get(ctx, key)
	if err == nil {
		return cs, nil
	}
	if !errors.Is(err, redis.Nil) {
		c.log.Printf("cache: get %s: %v", key, err)
	}

	cs, err = c.next.Fetch(ctx, dir, endTime)
	if err != nil {
		return nil, err
	}
	if err := c.set(ctx, key, cs); err != nil {
		c.log.Printf("cache: set %s: %v", key, err)
	}
	return cs, nil
}

// Invalidate drops one cached block.
func (c *Redis) Invalidate(ctx context.Context, endTime int64) error {
	return c.client.Del(ctx, c.key(endTime)).Err()
}

func (c *Redis) get(ctx context.Context, key string) ([]market.Candle, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (c *Redis) set(ctx context.Context, key string, cs []market.Candle) error {
	data, err := encode(cs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// entry is the stored form of a candle. JSON has no NaN, so missing values
// are null.
type entry struct {
	T int64    `json:"t"`
	O *float64 `json:"o"`
	H *float64 `json:"h"`
	L *float64 `json:"l"`
	C *float64 `json:"c"`
	V *float64 `json:"v"`
}

func encode(cs []market.Candle) ([]byte, error) {
	out := make([]entry, len(cs))
	for i, c := range cs {
		out[i] = entry{T: c.TimeOpen, O: ptr(c.Open), H: ptr(c.High), L: ptr(c.Low), C: ptr(c.Close), V: ptr(c.Volume)}
	}
	return json.Marshal(out)
}

func decode(data []byte) ([]market.Candle, error) {
	var in []entry
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	cs := make([]market.Candle, len(in))
	for i, e := range in {
		cs[i] = market.Candle{TimeOpen: e.T, Open: val(e.O), High: val(e.H), Low: val(e.L), Close: val(e.C), Volume: val(e.V)}
	}
	return cs, nil
}

func ptr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func val(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
