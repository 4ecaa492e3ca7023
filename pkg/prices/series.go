package prices

import (
	"errors"
	"fmt"
	"time"
)

// HoursPerDay is the number of hourly prices in a Series.
const HoursPerDay = 24

var ErrMalformed = errors.New("malformed price series")

// Record is a single price as delivered by the data source.
type Record struct {
	Time  time.Time
	Price float64
}

// Series is an immutable set of hourly prices for one calendar day.
type Series struct {
	day         time.Time
	hourly      [HoursPerDay]float64
	PublishedAt string
}

// NewSeries builds a Series from source records. Records not aligned to an hour
// boundary or outside of day are discarded. If an hour is delivered more than
// once the first record wins.
func NewSeries(day time.Time, records []Record) (*Series, error) {
	day = StartOfDay(day)
	s := &Series{day: day}
	var seen [HoursPerDay]bool
	for _, r := range records {
		t := r.Time.In(day.Location())
		if t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
			continue
		}
		if !SameDay(t, day) {
			continue
		}
		h := t.Hour()
		if seen[h] {
			continue
		}
		seen[h] = true
		s.hourly[h] = r.Price
	}
	for h, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("%w: missing hour %d for %s", ErrMalformed, h, day.Format(time.DateOnly))
		}
	}
	return s, nil
}

// FromHourly builds a Series from exactly 24 prices indexed by hour.
func FromHourly(day time.Time, hourly []float64) (*Series, error) {
	if len(hourly) != HoursPerDay {
		return nil, fmt.Errorf("%w: expected %d prices got %d", ErrMalformed, HoursPerDay, len(hourly))
	}
	s := &Series{day: StartOfDay(day)}
	copy(s.hourly[:], hourly)
	return s, nil
}

func (s *Series) Day() time.Time {
	return s.day
}

// Price returns the price for hour. ok is false for hours outside 0-23.
func (s *Series) Price(hour int) (float64, bool) {
	if hour < 0 || hour >= HoursPerDay {
		return 0, false
	}
	return s.hourly[hour], true
}

// Prices returns a copy of the hourly prices.
func (s *Series) Prices() []float64 {
	p := make([]float64, HoursPerDay)
	copy(p, s.hourly[:])
	return p
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
