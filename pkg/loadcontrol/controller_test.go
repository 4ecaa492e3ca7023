package loadcontrol

import (
	"math"
	"testing"

	"github.com/nergy-se/smartrce/pkg/state"
	"github.com/stretchr/testify/assert"
)

// snapshot builds a complete snapshot from derived values.
func snapshot(soc, pvAvailable, batteryPower, exportedWh float64, heaterOn bool) state.State {
	return state.State{
		HeaterOn:              state.Bool(heaterOn),
		BatterySoC:            state.Float(soc),
		BatteryPowerAvg:       state.Float(-batteryPower),
		ConsumptionMinusPVAvg: state.Float(-pvAvailable),
		ExportedEnergyHourly:  state.Float(exportedWh / 1000),
	}
}

func TestEvaluateMissingSignal(t *testing.T) {
	full := snapshot(95, 10000, 0, 1000, true)
	assert.True(t, Evaluate(Tiers(DefaultHeaterPowerW), full).TurnOn)

	for _, sig := range state.Signals {
		s := full
		switch sig {
		case state.SignalHeaterOn:
			s.HeaterOn = nil
		case state.SignalBatterySoC:
			s.BatterySoC = nil
		case state.SignalBatteryPowerAvg:
			s.BatteryPowerAvg = nil
		case state.SignalConsumptionMinusPVAvg:
			s.ConsumptionMinusPVAvg = nil
		case state.SignalExportedEnergyHourly:
			s.ExportedEnergyHourly = nil
		}
		t.Run(string(sig), func(t *testing.T) {
			d := Evaluate(Tiers(DefaultHeaterPowerW), s)
			assert.Equal(t, Decision{}, d)
			assert.Equal(t, []state.Signal{sig}, s.Missing())
		})
	}
}

func TestEvaluate(t *testing.T) {
	var tests = []struct {
		name            string
		given           state.State
		expectedTurnOn  bool
		expectedTurnOff bool
		expectedTier    string
	}{
		{name: "soc 95 pv above heater power", given: snapshot(95, 3100, 50, 0, false), expectedTurnOn: true, expectedTurnOff: false, expectedTier: "soc90-96"},
		{name: "soc 95 forced by export", given: snapshot(95, 10, 5000, 350, false), expectedTurnOn: true, expectedTurnOff: false, expectedTier: "soc90-96"},
		{name: "soc 95 export without pv", given: snapshot(95, 0, 50, 350, false), expectedTurnOn: false, expectedTurnOff: true, expectedTier: "soc90-96"},
		{name: "soc 95 running heater kept on", given: snapshot(95, 100, 50, 81, true), expectedTurnOn: false, expectedTurnOff: false, expectedTier: "soc90-96"},
		{name: "soc 95 heater off not kept", given: snapshot(95, 100, 50, 81, false), expectedTurnOn: false, expectedTurnOff: true, expectedTier: "soc90-96"},
		{name: "soc 50 pv above 3700", given: snapshot(50, 3701, 2000, 0, false), expectedTurnOn: true, expectedTurnOff: false, expectedTier: "soc0-89"},
		{name: "soc 50 pv at 3700", given: snapshot(50, 3700, 2000, 0, false), expectedTurnOn: false, expectedTurnOff: false, expectedTier: "soc0-89"},
		{name: "soc 50 battery below 900", given: snapshot(50, 1000, 899, 0, true), expectedTurnOn: false, expectedTurnOff: true, expectedTier: "soc0-89"},
		{name: "soc 50 export is ignored", given: snapshot(50, 1000, 899, 500, true), expectedTurnOn: false, expectedTurnOff: true, expectedTier: "soc0-89"},
		{name: "soc 0", given: snapshot(0, 4000, 0, 0, false), expectedTurnOn: true, expectedTurnOff: false, expectedTier: "soc0-89"},
		{name: "soc 97 pv 3400", given: snapshot(97, 3400, 500, 0, false), expectedTurnOn: false, expectedTurnOff: false, expectedTier: "soc97-98"},
		{name: "soc 98 pv 3501", given: snapshot(98, 3501, 500, 0, false), expectedTurnOn: true, expectedTurnOff: false, expectedTier: "soc97-98"},
		{name: "soc 98 battery 99", given: snapshot(98, 1000, 99, 0, true), expectedTurnOn: false, expectedTurnOff: true, expectedTier: "soc97-98"},
		{name: "soc 99 pv 3301", given: snapshot(99, 3301, 500, 0, false), expectedTurnOn: true, expectedTurnOff: false, expectedTier: "soc99"},
		{name: "soc 99 battery 90", given: snapshot(99, 1000, 90, 0, true), expectedTurnOn: false, expectedTurnOff: false, expectedTier: "soc99"},
		{name: "soc 99 battery 89", given: snapshot(99, 1000, 89, 0, true), expectedTurnOn: false, expectedTurnOff: true, expectedTier: "soc99"},
		{name: "soc 100 pv 3001", given: snapshot(100, 3001, 0, 0, false), expectedTurnOn: true, expectedTurnOff: false, expectedTier: "soc100"},
		{name: "soc 100 importing", given: snapshot(100, -1, 0, 0, true), expectedTurnOn: false, expectedTurnOff: true, expectedTier: "soc100"},
		{name: "soc 100 battery ignored", given: snapshot(100, 500, -2000, 0, true), expectedTurnOn: false, expectedTurnOff: false, expectedTier: "soc100"},
		{name: "soc above 100", given: snapshot(101, 10000, 0, 1000, true), expectedTurnOn: false, expectedTurnOff: false},
		{name: "soc negative", given: snapshot(-1, 10000, 0, 1000, true), expectedTurnOn: false, expectedTurnOff: false},
		{name: "soc NaN", given: snapshot(math.NaN(), 10000, 0, 1000, true), expectedTurnOn: false, expectedTurnOff: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(Tiers(DefaultHeaterPowerW), tt.given)
			assert.Equal(t, tt.expectedTurnOn, d.TurnOn)
			assert.Equal(t, tt.expectedTurnOff, d.TurnOff)
			assert.Equal(t, tt.expectedTier, d.Tier)
		})
	}
}

func TestDecisionExclusive(t *testing.T) {
	tiers := Tiers(DefaultHeaterPowerW)
	for soc := -5.0; soc <= 105; soc += 0.5 {
		for _, pv := range []float64{-500, 0, 10, 2999, 3001, 3301, 3501, 3701, 8000} {
			for _, bp := range []float64{-3000, 0, 89, 99, 899, 2000} {
				for _, wh := range []float64{0, 81, 301} {
					for _, on := range []bool{true, false} {
						d := Apply(tiers, Input{SoC: soc, PVAvailable: pv, BatteryPower: bp, ExportedWh: wh, HeaterOn: on})
						assert.False(t, d.TurnOn && d.TurnOff, "soc=%v pv=%v bp=%v wh=%v on=%v", soc, pv, bp, wh, on)
					}
				}
			}
		}
	}
}

func TestControllerChanged(t *testing.T) {
	c := New(DefaultHeaterPowerW)
	_, ok := c.Last()
	assert.False(t, ok)

	d, changed := c.Evaluate(state.State{})
	assert.True(t, changed)
	assert.Equal(t, Decision{}, d)

	_, changed = c.Evaluate(state.State{})
	assert.False(t, changed)

	d, changed = c.Evaluate(snapshot(95, 3100, 50, 0, false))
	assert.True(t, changed)
	assert.True(t, d.TurnOn)

	d, changed = c.Evaluate(snapshot(95, 3200, 40, 0, false))
	assert.False(t, changed)

	last, ok := c.Last()
	assert.True(t, ok)
	assert.Equal(t, d, last)
}

func TestHeaterPowerConfigurable(t *testing.T) {
	d := Evaluate(Tiers(2000), snapshot(95, 2100, 500, 0, false))
	assert.True(t, d.TurnOn)
	d = Evaluate(Tiers(DefaultHeaterPowerW), snapshot(95, 2100, 500, 0, false))
	assert.False(t, d.TurnOn)
}
