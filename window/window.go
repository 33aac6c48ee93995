// Package window keeps the in-memory candle buffer behind a chart and grows it
// block by block as the visible range approaches either end.
package window

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/KDVMan/candlechart/internal/id"
	"github.com/KDVMan/candlechart/market"
	"github.com/KDVMan/candlechart/viewport"
)

// Direction selects which end of the window a block extends.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Backward:
		return "backward"
	case Forward:
		return "forward"
	default:
		return "none"
	}
}

// tolerance for "already covered" and limit checks
const tolerance = market.Second

const DefaultBlockSize = 2000

// Fetcher loads the block of candles ending at endTime (unix ms). The result
// may be unordered and may overlap the window; an empty result means no data.
type Fetcher interface {
	Fetch(ctx context.Context, dir Direction, endTime int64) ([]market.Candle, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, dir Direction, endTime int64) ([]market.Candle, error)

func (f FetcherFunc) Fetch(ctx context.Context, dir Direction, endTime int64) ([]market.Candle, error) {
	return f(ctx, dir, endTime)
}

// Limits records where the data source ran dry. Low only moves earlier and
// High only moves later until the window is reset.
type Limits struct {
	Low     int64
	HasLow  bool
	High    int64
	HasHigh bool
}

func (l *Limits) setLow(t int64) {
	if !l.HasLow || t < l.Low {
		l.Low, l.HasLow = t, true
	}
}

func (l *Limits) setHigh(t int64) {
	if !l.HasHigh || t > l.High {
		l.High, l.HasHigh = t, true
	}
}

type Options struct {
	BlockSize int
	MaxSticks int           // 0 leaves the window unbounded
	Timeout   time.Duration // per fetch, 0 for none

	// OnResult runs on the fetch goroutine once a result is queued. It must
	// not touch the Manager; use it to schedule the next Poll.
	OnResult func()
}

// Result describes one applied fetch.
type Result struct {
	ID       string
	Dir      Direction
	Added    int
	Evicted  int
	LimitSet bool
	Stale    bool
	Err      error
}

// Changed reports whether the window contents moved.
func (r Result) Changed() bool {
	return r.Added > 0 || r.Evicted > 0
}

type request struct {
	id    string
	gen   int
	dir   Direction
	start float64 // requested span start
	end   int64
}

type outcome struct {
	req     request
	candles []market.Candle
	err     error
}

// Manager owns the ordered, de-duplicated candle buffer. All methods must be
// called from a single goroutine; the only concurrent work is the fetch
// itself, whose outcome is queued and applied by Poll or Wait.
type Manager struct {
	fetcher Fetcher
	opts    Options
	log     *log.Logger

	data   []market.Candle
	step   float64
	limits Limits
	gen    int

	inflight bool
	done     chan outcome
}

func New(f Fetcher, opts Options, logger *log.Logger) *Manager {
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		fetcher: f,
		opts:    opts,
		log:     logger,
		step:    float64(market.Minute),
		done:    make(chan outcome, 1),
	}
}

// Reset replaces the window with a fresh data set and forgets the limits.
// Fetches issued against the previous data set are discarded on arrival.
func (m *Manager) Reset(cs []market.Candle) {
	data := make([]market.Candle, len(cs))
	copy(data, cs)
	m.data = market.Dedupe(data)
	m.step = market.Step(m.data)
	m.limits = Limits{}
	m.gen++
}

func (m *Manager) SetFetcher(f Fetcher) { m.fetcher = f }

// Configure replaces the options. A running fetch keeps the options it
// started with.
func (m *Manager) Configure(opts Options) {
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}
	m.opts = opts
}

func (m *Manager) BlockSize() int { return m.opts.BlockSize }

// MaxSize is MaxSticks + 4 blocks, or 0 when unbounded.
func (m *Manager) MaxSize() int {
	if m.opts.MaxSticks <= 0 {
		return 0
	}
	return m.opts.MaxSticks + 4*m.opts.BlockSize
}

// Candles returns the window. Callers must not modify it.
func (m *Manager) Candles() []market.Candle { return m.data }

func (m *Manager) Len() int { return len(m.data) }

// Step is the candle spacing (ms) measured on the last Reset.
func (m *Manager) Step() float64 { return m.step }

func (m *Manager) Limits() Limits { return m.limits }

func (m *Manager) InFlight() bool { return m.inflight }

// Last returns the newest candle.
func (m *Manager) Last() (market.Candle, bool) {
	if len(m.data) == 0 {
		return market.Candle{}, false
	}
	return m.data[len(m.data)-1], true
}

// FirstVisible returns the index of the first candle at or right of the
// viewport's left edge, or -1.
func (m *Manager) FirstVisible(vp *viewport.Viewport) int {
	i := sort.Search(len(m.data), func(i int) bool {
		return float64(m.data[i].TimeOpen) >= vp.X.Low
	})
	if i == len(m.data) {
		return -1
	}
	return i
}

// Visible returns the candles inside the visible time range.
func (m *Manager) Visible(vp *viewport.Viewport) []market.Candle {
	start := m.FirstVisible(vp)
	if start < 0 {
		return nil
	}
	end := start
	for end < len(m.data) && float64(m.data[end].TimeOpen) <= vp.X.High {
		end++
	}
	return m.data[start:end]
}

// RequestMoreIfNeeded asks for an older block when fewer than a block of
// candles precede the view, otherwise for a newer block when fewer than a
// block follow it. It returns the direction requested, or 0.
func (m *Manager) RequestMoreIfNeeded(ctx context.Context, vp *viewport.Viewport) Direction {
	if len(m.data) == 0 || !vp.Ready() {
		return 0
	}
	start := m.FirstVisible(vp)
	if start < 0 {
		return 0
	}
	block := m.opts.BlockSize
	if start < block && m.Request(ctx, Backward) {
		return Backward
	}
	if float64(len(m.data)-start)-vp.OnscreenSticks() < float64(block) && m.Request(ctx, Forward) {
		return Forward
	}
	return 0
}

// Request starts fetching one block in dir. It returns false when a fetch is
// already running, when the span is already loaded, or when a recorded limit
// says there is nothing more that way.
func (m *Manager) Request(ctx context.Context, dir Direction) bool {
	if m.inflight || m.fetcher == nil || len(m.data) == 0 {
		return false
	}

	first := m.data[0].TimeOpen
	last := m.data[len(m.data)-1].TimeOpen
	width := m.step * float64(m.opts.BlockSize)

	req := request{id: id.New(), gen: m.gen, dir: dir}
	switch dir {
	case Forward:
		req.end = int64(float64(last) + width + 0.5)
		if req.end-last < tolerance {
			return false
		}
		if m.limits.HasHigh && last-m.limits.High >= -tolerance {
			return false
		}
	case Backward:
		req.end = first
		if float64(req.end)-width-float64(first) > float64(tolerance) {
			return false
		}
		if m.limits.HasLow && m.limits.Low-first >= -tolerance {
			return false
		}
	default:
		return false
	}
	req.start = float64(req.end) - width

	m.inflight = true
	m.log.Printf("window: fetch %s dir=%s end=%d", req.id, dir, req.end)

	go run(ctx, m.fetcher, req, m.opts.Timeout, m.done, m.opts.OnResult)
	return true
}

// run is the only code executing off the owner goroutine; it touches nothing
// but its arguments.
func run(ctx context.Context, f Fetcher, req request, timeout time.Duration, done chan<- outcome, notify func()) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cs, err := fetch(ctx, f, req)
	done <- outcome{req: req, candles: cs, err: err}
	if notify != nil {
		notify()
	}
}

func fetch(ctx context.Context, f Fetcher, req request) (cs []market.Candle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetcher panic: %v", r)
		}
	}()
	return f.Fetch(ctx, req.dir, req.end)
}

// Poll applies a finished fetch, if any, without blocking.
func (m *Manager) Poll() (Result, bool) {
	select {
	case o := <-m.done:
		return m.apply(o), true
	default:
		return Result{}, false
	}
}

// Wait blocks until the running fetch finishes and applies it. It returns
// false immediately when nothing is in flight.
func (m *Manager) Wait(ctx context.Context) (Result, bool) {
	if !m.inflight {
		return Result{}, false
	}
	select {
	case o := <-m.done:
		return m.apply(o), true
	case <-ctx.Done():
		return Result{Err: ctx.Err()}, false
	}
}

func (m *Manager) apply(o outcome) Result {
	m.inflight = false
	res := Result{ID: o.req.id, Dir: o.req.dir}

	if o.req.gen != m.gen {
		m.log.Printf("window: fetch %s dropped: data set was replaced", o.req.id)
		res.Stale = true
		return res
	}
	if o.err != nil {
		m.log.Printf("window: fetch %s failed: %v", o.req.id, o.err)
		res.Err = o.err
		return res
	}
	if len(m.data) == 0 {
		return res
	}

	block := make([]market.Candle, len(o.candles))
	copy(block, o.candles)
	market.SortByTime(block)

	first := m.data[0].TimeOpen
	last := m.data[len(m.data)-1].TimeOpen

	if o.req.dir == Backward {
		idx := sort.Search(len(block), func(i int) bool { return block[i].TimeOpen >= first })
		block = block[:idx]
		if len(block) == 0 {
			if o.req.start >= float64(first) {
				return res
			}
			m.limits.setLow(first)
			res.LimitSet = true
			m.log.Printf("window: no data before %d", first)
			return res
		}
	} else {
		idx := sort.Search(len(block), func(i int) bool { return block[i].TimeOpen > last })
		block = block[idx:]
		if len(block) == 0 {
			if o.req.end <= last {
				return res
			}
			m.limits.setHigh(last)
			res.LimitSet = true
			m.log.Printf("window: no data after %d", last)
			return res
		}
	}

	merged := make([]market.Candle, 0, len(m.data)+len(block))
	if o.req.dir == Backward {
		merged = append(append(merged, block...), m.data...)
	} else {
		merged = append(append(merged, m.data...), block...)
	}
	merged = market.Dedupe(merged)
	res.Added = len(merged) - len(m.data)

	if limit := m.MaxSize(); limit > 0 && len(merged) > limit {
		res.Evicted = len(merged) - limit
		if o.req.dir == Backward {
			merged = merged[:limit]
		} else {
			merged = merged[len(merged)-limit:]
		}
	}
	m.data = merged

	m.log.Printf("window: fetch %s merged %d, evicted %d, size %d", o.req.id, res.Added, res.Evicted, len(m.data))
	return res
}
