package state

import "fmt"

// Signal names the five telemetry inputs.
type Signal string

const (
	SignalHeaterOn              Signal = "heater_on"
	SignalBatterySoC            Signal = "battery_soc"
	SignalBatteryPowerAvg       Signal = "battery_power_avg"
	SignalConsumptionMinusPVAvg Signal = "consumption_minus_pv_avg"
	SignalExportedEnergyHourly  Signal = "exported_energy_hourly"
)

var Signals = []Signal{
	SignalHeaterOn,
	SignalBatterySoC,
	SignalBatteryPowerAvg,
	SignalConsumptionMinusPVAvg,
	SignalExportedEnergyHourly,
}

func ParseSignal(s string) (Signal, error) {
	for _, sig := range Signals {
		if string(sig) == s {
			return sig, nil
		}
	}
	return "", fmt.Errorf("unknown signal %q", s)
}

// State is a telemetry snapshot. Nil fields are absent signals.
type State struct {
	HeaterOn *bool `json:"heaterOn,omitempty"`
	// percent 0-100
	BatterySoC *float64 `json:"batterySoc,omitempty"`
	// W, negative = charging
	BatteryPowerAvg *float64 `json:"batteryPowerAvg,omitempty"`
	// W, negative = pv surplus
	ConsumptionMinusPVAvg *float64 `json:"consumptionMinusPvAvg,omitempty"`
	// kWh exported since the top of the hour
	ExportedEnergyHourly *float64 `json:"exportedEnergyHourly,omitempty"`
}

// Complete reports whether all signals are present.
func (s State) Complete() bool {
	return len(s.Missing()) == 0
}

// Missing returns the absent signals.
func (s State) Missing() []Signal {
	var missing []Signal
	for _, sig := range Signals {
		if !s.Has(sig) {
			missing = append(missing, sig)
		}
	}
	return missing
}

func (s State) Has(sig Signal) bool {
	switch sig {
	case SignalHeaterOn:
		return s.HeaterOn != nil
	case SignalBatterySoC:
		return s.BatterySoC != nil
	case SignalBatteryPowerAvg:
		return s.BatteryPowerAvg != nil
	case SignalConsumptionMinusPVAvg:
		return s.ConsumptionMinusPVAvg != nil
	case SignalExportedEnergyHourly:
		return s.ExportedEnergyHourly != nil
	}
	return false
}

func (s State) Map() map[string]interface{} {
	m := make(map[string]interface{})
	if s.HeaterOn != nil {
		m[string(SignalHeaterOn)] = boolToInt(*s.HeaterOn)
	}
	if s.BatterySoC != nil {
		m[string(SignalBatterySoC)] = *s.BatterySoC
	}
	if s.BatteryPowerAvg != nil {
		m[string(SignalBatteryPowerAvg)] = *s.BatteryPowerAvg
	}
	if s.ConsumptionMinusPVAvg != nil {
		m[string(SignalConsumptionMinusPVAvg)] = *s.ConsumptionMinusPVAvg
	}
	if s.ExportedEnergyHourly != nil {
		m[string(SignalExportedEnergyHourly)] = *s.ExportedEnergyHourly
	}
	return m
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func Bool(b bool) *bool {
	return &b
}

func Float(f float64) *float64 {
	return &f
}
