package telemetry

import (
	"fmt"
	"sync"

	"github.com/nergy-se/smartrce/pkg/alarm"
	"github.com/nergy-se/smartrce/pkg/state"
	"github.com/sirupsen/logrus"
)

// Store merges signal updates from all sources into one snapshot and calls
// the handler whenever the snapshot changes. Snapshots reach the handler in
// the order the updates were applied.
type Store struct {
	state    state.State
	alarms   *alarm.ActiveAlarms
	onChange func(state.State)
	mutex    sync.Mutex
	// held from applying an update until its handler returns
	delivery sync.Mutex
}

// NewStore creates a store calling onChange on every change. onChange must not
// write to the store.
func NewStore(alarms *alarm.ActiveAlarms, onChange func(state.State)) *Store {
	return &Store{
		alarms:   alarms,
		onChange: onChange,
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() state.State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return clone(s.state)
}

// SetRaw parses a string state for sig and stores it. Unmappable values are stored as absent.
func (s *Store) SetRaw(sig state.Signal, raw string) {
	if sig == state.SignalHeaterOn {
		s.SetBool(sig, ParseOnOff(sig, raw))
		return
	}
	s.SetFloat(sig, ParseFloat(sig, raw))
}

func (s *Store) SetBool(sig state.Signal, v *bool) {
	s.update(func(st *state.State) bool {
		if sig != state.SignalHeaterOn {
			logrus.Errorf("telemetry: %s is not a bool signal", sig)
			return false
		}
		if equalBool(st.HeaterOn, v) {
			return false
		}
		st.HeaterOn = copyBool(v)
		return true
	})
}

func (s *Store) SetFloat(sig state.Signal, v *float64) {
	s.update(func(st *state.State) bool {
		var field **float64
		switch sig {
		case state.SignalBatterySoC:
			field = &st.BatterySoC
		case state.SignalBatteryPowerAvg:
			field = &st.BatteryPowerAvg
		case state.SignalConsumptionMinusPVAvg:
			field = &st.ConsumptionMinusPVAvg
		case state.SignalExportedEnergyHourly:
			field = &st.ExportedEnergyHourly
		default:
			logrus.Errorf("telemetry: %s is not a float signal", sig)
			return false
		}
		if equalFloat(*field, v) {
			return false
		}
		*field = copyFloat(v)
		return true
	})
}

func (s *Store) update(fn func(st *state.State) bool) {
	s.delivery.Lock()
	defer s.delivery.Unlock()

	s.mutex.Lock()
	changed := fn(&s.state)
	snapshot := clone(s.state)
	s.mutex.Unlock()

	if !changed {
		return
	}
	s.trackMissing(snapshot)
	if s.onChange != nil {
		s.onChange(snapshot)
	}
}

func (s *Store) trackMissing(st state.State) {
	if s.alarms == nil {
		return
	}
	for _, sig := range state.Signals {
		name := MissingAlarm(sig)
		if st.Has(sig) {
			if s.alarms.Remove(name) {
				logrus.Infof("telemetry: %s is available again", sig)
			}
			continue
		}
		if s.alarms.Add(name) {
			logrus.Warnf("telemetry: %s is missing", sig)
		}
	}
}

func MissingAlarm(sig state.Signal) string {
	return fmt.Sprintf("missing signal %s", sig)
}

func clone(st state.State) state.State {
	return state.State{
		HeaterOn:              copyBool(st.HeaterOn),
		BatterySoC:            copyFloat(st.BatterySoC),
		BatteryPowerAvg:       copyFloat(st.BatteryPowerAvg),
		ConsumptionMinusPVAvg: copyFloat(st.ConsumptionMinusPVAvg),
		ExportedEnergyHourly:  copyFloat(st.ExportedEnergyHourly),
	}
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func equalBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
