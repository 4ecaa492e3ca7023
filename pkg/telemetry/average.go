package telemetry

import (
	"sync"
	"time"
)

type sample struct {
	t time.Time
	v float64
}

// Average is the mean of the samples seen during the last window.
type Average struct {
	window  time.Duration
	samples []sample
	mutex   sync.Mutex
}

func NewAverage(window time.Duration) *Average {
	return &Average{window: window}
}

// Add records v at t and returns the mean over (t-window, t].
func (a *Average) Add(t time.Time, v float64) float64 {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.samples = append(a.samples, sample{t: t, v: v})

	cutoff := t.Add(-a.window)
	i := 0
	for i < len(a.samples) && !a.samples[i].t.After(cutoff) {
		i++
	}
	a.samples = a.samples[i:]

	sum := 0.0
	for _, s := range a.samples {
		sum += s.v
	}
	return sum / float64(len(a.samples))
}
