package ems

import (
	"fmt"
	"math"
	"time"

	"github.com/nergy-se/smartrce/pkg/prices"
)

const (
	MinWindowHours = 3
	MaxWindowHours = 8

	// charging may start in [firstStartHour, lastStartHour)
	firstStartHour = 6
	lastStartHour  = 16

	// an earlier, longer window is accepted if its first hour is below
	// cheapPrice or less than maxPriceStep above the initial window's worst hour.
	cheapPrice   = 100.0
	maxPriceStep = 45.0

	// lead time reported before a minimum-length window
	warmUpLead = 0.5
)

// ChargeWindowPlan is the cheapest contiguous charge window of one day.
type ChargeWindowPlan struct {
	Day          time.Time   `json:"day"`
	WindowHours  int         `json:"windowHours"`
	StartHour    float64     `json:"startHour"`
	EndHour      float64     `json:"endHour"`
	StartTime    time.Time   `json:"startTime"`
	EndTime      time.Time   `json:"endTime"`
	HourlyPrices []float64   `json:"hourlyPrices"`
	BestStarts   map[int]int `json:"bestStarts"`
}

// FirstHour returns the first full hour of the cheapest window of the given length.
func (p *ChargeWindowPlan) FirstHour(windowHours int) int {
	return p.BestStarts[windowHours]
}

// LastHour returns the last hour (inclusive) of the cheapest window of the given length.
func (p *ChargeWindowPlan) LastHour(windowHours int) int {
	return p.BestStarts[windowHours] + windowHours - 1
}

type window struct {
	hours int
	start int
}

// Window is the optimizer result on a bare price slice.
type Window struct {
	Hours      int
	Start      int
	BestStarts map[int]int
}

// StartHour is the reported start, half an hour early for a minimum length window.
func (w Window) StartHour() float64 {
	if w.Hours == MinWindowHours {
		return float64(w.Start) - warmUpLead
	}
	return float64(w.Start)
}

func (w Window) EndHour() float64 {
	return float64(w.Start + w.Hours)
}

// FindWindow picks the charge window for 24 hourly prices.
func FindWindow(hourly []float64) (Window, error) {
	if len(hourly) != prices.HoursPerDay {
		return Window{}, fmt.Errorf("%w: expected %d prices got %d", prices.ErrMalformed, prices.HoursPerDay, len(hourly))
	}
	candidates := cheapestWindows(hourly)
	best := chooseWindow(hourly, candidates)

	starts := make(map[int]int, len(candidates))
	for _, c := range candidates {
		starts[c.hours] = c.start
	}
	return Window{Hours: best.hours, Start: best.start, BestStarts: starts}, nil
}

// NewPlan runs FindWindow on series and resolves wall clock times in the series zone.
func NewPlan(series *prices.Series) (*ChargeWindowPlan, error) {
	hourly := series.Prices()
	w, err := FindWindow(hourly)
	if err != nil {
		return nil, err
	}
	day := series.Day()
	return &ChargeWindowPlan{
		Day:          day,
		WindowHours:  w.Hours,
		StartHour:    w.StartHour(),
		EndHour:      w.EndHour(),
		StartTime:    hourToTime(day, w.StartHour()),
		EndTime:      hourToTime(day, w.EndHour()),
		HourlyPrices: hourly,
		BestStarts:   w.BestStarts,
	}, nil
}

// cheapestWindows returns, ordered by length, the start hour with the lowest
// mean price for every window length. Ties keep the earliest start.
func cheapestWindows(hourly []float64) []window {
	out := make([]window, 0, MaxWindowHours-MinWindowHours+1)
	for hours := MinWindowHours; hours <= MaxWindowHours; hours++ {
		minAvg := math.Inf(1)
		best := firstStartHour
		for start := firstStartHour; start < lastStartHour && start+hours <= len(hourly); start++ {
			avg := mean(hourly[start : start+hours])
			if avg < minAvg {
				minAvg = avg
				best = start
			}
		}
		out = append(out, window{hours: hours, start: best})
	}
	return out
}

// chooseWindow folds over the per-length candidates starting from the shortest
// one. A longer window replaces the winner when it starts at the same hour as
// the initial window, or earlier while still being cheap enough.
func chooseWindow(hourly []float64, candidates []window) window {
	initial := candidates[0]
	capPrice := maxOf(hourly[initial.start : initial.start+initial.hours])

	winner := initial
	for _, c := range candidates[1:] {
		switch {
		case c.start == initial.start:
			winner = c
		case c.start < initial.start && (hourly[c.start] < cheapPrice || hourly[c.start]-capPrice < maxPriceStep):
			winner = c
		}
	}
	return winner
}

func hourToTime(day time.Time, hour float64) time.Time {
	minutes := int(math.Round(hour * 60))
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, day.Location())
}

func mean(v []float64) float64 {
	sum := 0.0
	for _, f := range v {
		sum += f
	}
	return sum / float64(len(v))
}

func maxOf(v []float64) float64 {
	m := math.Inf(-1)
	for _, f := range v {
		if f > m {
			m = f
		}
	}
	return m
}
