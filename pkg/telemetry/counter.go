package telemetry

import (
	"sync"
	"time"
)

// HourlyCounter turns a cumulative energy register into energy since the top of the hour.
type HourlyCounter struct {
	hour     time.Time
	base     float64
	last     float64
	lastTime time.Time
	mutex    sync.Mutex
}

// Update records the cumulative reading total at t and returns total minus
// the reading at the start of t's hour.
func (h *HourlyCounter) Update(t time.Time, total float64) float64 {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	hour := t.Truncate(time.Hour)
	if !hour.Equal(h.hour) {
		// the last reading of the previous hour is the best known value at the boundary
		if !h.lastTime.IsZero() && !h.lastTime.Before(hour.Add(-time.Hour)) && h.lastTime.Before(hour) {
			h.base = h.last
		} else {
			h.base = total
		}
		h.hour = hour
	}
	if total < h.base {
		// meter replaced or reset
		h.base = total
	}
	h.last = total
	h.lastTime = t
	return total - h.base
}
