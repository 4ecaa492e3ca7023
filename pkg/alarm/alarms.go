package alarm

import (
	"sort"
	"sync"
)

type ActiveAlarms struct {
	activeAlarms []string
	sync.RWMutex
}

// Add adds string to alarm list and returns true if it was added. returns false if it already exists.
func (a *ActiveAlarms) Add(alarm string) bool {
	a.Lock()
	defer a.Unlock()
	for _, activeAlarm := range a.activeAlarms {
		if activeAlarm == alarm {
			return false
		}
	}

	a.activeAlarms = append(a.activeAlarms, alarm)
	return true
}

// Remove returns true if alarm was active.
func (a *ActiveAlarms) Remove(alarm string) bool {
	a.Lock()
	defer a.Unlock()
	for i, activeAlarm := range a.activeAlarms {
		if activeAlarm == alarm {
			a.activeAlarms = append(a.activeAlarms[:i], a.activeAlarms[i+1:]...)
			return true
		}
	}
	return false
}

func (a *ActiveAlarms) Clear() bool {
	hasActive := false
	a.Lock()
	if len(a.activeAlarms) > 0 {
		hasActive = true
		a.activeAlarms = nil
	}
	a.Unlock()
	return hasActive
}

// List returns the active alarms sorted.
func (a *ActiveAlarms) List() []string {
	a.RLock()
	defer a.RUnlock()
	l := append([]string{}, a.activeAlarms...)
	sort.Strings(l)
	return l
}
