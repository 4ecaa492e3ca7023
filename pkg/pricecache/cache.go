package pricecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nergy-se/smartrce/pkg/listeners"
	"github.com/nergy-se/smartrce/pkg/prices"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	// next day prices are published around this hour local time
	PublicationHour = 14

	// minimum time between two attempts to fetch tomorrow
	RecheckInterval = 14 * time.Minute

	FetchTimeout = 10 * time.Second
)

var ErrFetch = errors.New("price fetch failed")

// Fetcher returns the hourly prices of day. A nil series without error means
// the day is not published yet.
type Fetcher interface {
	FetchDay(ctx context.Context, day time.Time) (*prices.Series, error)
}

// Metrics receives refresh outcomes. Nil is allowed.
type Metrics interface {
	RefreshCompleted(kind string)
	FetchFailed(day string)
}

// State is an immutable snapshot of the cached prices.
type State struct {
	FetchedAt time.Time
	Today     *prices.Series
	Tomorrow  *prices.Series
}

type Kind string

const (
	KindNoOp    Kind = "noop"
	KindFull    Kind = "full"
	KindPartial Kind = "partial"
)

type Result struct {
	Kind  Kind
	State *State
}

type Cache struct {
	fetcher   Fetcher
	metrics   Metrics
	timeout   time.Duration
	group     singleflight.Group
	listeners listeners.List

	state *State
	sync.RWMutex
}

func New(fetcher Fetcher, metrics Metrics) *Cache {
	return &Cache{
		fetcher: fetcher,
		metrics: metrics,
		timeout: FetchTimeout,
	}
}

// Snapshot returns the latest committed state or nil before the first successful refresh.
func (c *Cache) Snapshot() *State {
	c.RLock()
	defer c.RUnlock()
	return c.state
}

// Subscribe registers fn to be called after every committed refresh. The returned function removes it.
func (c *Cache) Subscribe(fn func()) func() {
	return c.listeners.Add(fn)
}

// Decide returns the kind of refresh needed for state at now.
func Decide(state *State, now time.Time) Kind {
	switch {
	case state == nil || state.Today == nil:
		return KindFull
	case !prices.SameDay(now, state.FetchedAt):
		return KindFull
	case state.Tomorrow != nil:
		return KindNoOp
	case now.Hour() >= PublicationHour && now.Sub(state.FetchedAt) >= RecheckInterval:
		return KindPartial
	}
	return KindNoOp
}

// Refresh brings the cache up to date for now. Concurrent calls share one
// refresh. On failure the previous snapshot is kept and the error wraps ErrFetch.
func (c *Cache) Refresh(ctx context.Context, now time.Time) (Result, error) {
	v, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		return c.refresh(ctx, now)
	})
	if err != nil {
		return Result{Kind: KindNoOp, State: c.Snapshot()}, err
	}
	return v.(Result), nil
}

func (c *Cache) refresh(ctx context.Context, now time.Time) (Result, error) {
	old := c.Snapshot()
	kind := Decide(old, now)
	today := prices.StartOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)

	var next *State
	switch kind {
	case KindNoOp:
		return Result{Kind: KindNoOp, State: old}, nil
	case KindFull:
		todaySeries, err := c.fetch(ctx, today)
		if err != nil {
			return Result{}, err
		}
		if todaySeries == nil {
			return Result{}, c.failed(today, fmt.Errorf("%w: no prices published for %s", ErrFetch, today.Format(time.DateOnly)))
		}
		tomorrowSeries, err := c.fetch(ctx, tomorrow)
		if err != nil {
			return Result{}, err
		}
		next = &State{FetchedAt: now, Today: todaySeries, Tomorrow: tomorrowSeries}
	case KindPartial:
		tomorrowSeries, err := c.fetch(ctx, tomorrow)
		if err != nil {
			return Result{}, err
		}
		next = &State{FetchedAt: now, Today: old.Today, Tomorrow: tomorrowSeries}
	}

	c.Lock()
	c.state = next
	c.Unlock()

	logrus.WithFields(logrus.Fields{
		"kind":        kind,
		"today":       next.Today.Day().Format(time.DateOnly),
		"hasTomorrow": next.Tomorrow != nil,
	}).Debug("pricecache: refreshed")

	if c.metrics != nil {
		c.metrics.RefreshCompleted(string(kind))
	}
	c.listeners.Notify()
	return Result{Kind: kind, State: next}, nil
}

func (c *Cache) fetch(ctx context.Context, day time.Time) (*prices.Series, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	series, err := c.fetcher.FetchDay(ctx, day)
	if err != nil {
		return nil, c.failed(day, fmt.Errorf("%w: %s: %w", ErrFetch, day.Format(time.DateOnly), err))
	}
	logrus.WithFields(logrus.Fields{
		"day":       day.Format(time.DateOnly),
		"published": series != nil,
		"duration":  time.Since(start),
	}).Debug("pricecache: fetched day")
	return series, nil
}

func (c *Cache) failed(day time.Time, err error) error {
	logrus.Errorf("pricecache: update failed: %s", err)
	if c.metrics != nil {
		c.metrics.FetchFailed(day.Format(time.DateOnly))
	}
	return err
}
