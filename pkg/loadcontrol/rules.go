package loadcontrol

const (
	DefaultHeaterPowerW = 3000.0

	// overrides are only considered from this state of charge
	overrideMinSoC = 90.0
	// Wh exported this hour above which surplus is routed to the heater
	exportForceOnWh = 300.0
	// Wh exported this hour above which a running heater is kept on
	exportKeepOnWh = 80.0
)

// Input holds the derived values the rules work on.
type Input struct {
	SoC float64
	// W available from pv, positive = surplus
	PVAvailable float64
	// W into the battery, positive = charging
	BatteryPower float64
	ExportedWh   float64
	HeaterOn     bool
}

// Tier is a state of charge range with its own switching thresholds.
type Tier struct {
	Name    string
	Match   func(soc float64) bool
	TurnOn  func(in Input) bool
	TurnOff func(in Input) bool
}

func between(from, to float64) func(float64) bool {
	return func(soc float64) bool {
		return soc >= from && soc < to
	}
}

// Tiers returns the rule table for a heater of heaterPower watts, evaluated top down.
func Tiers(heaterPower float64) []Tier {
	return []Tier{
		{
			Name:    "soc0-89",
			Match:   between(0, 90),
			TurnOn:  func(in Input) bool { return in.PVAvailable > 5200-1500 },
			TurnOff: func(in Input) bool { return in.BatteryPower < 1900-1000 },
		},
		{
			Name:    "soc90-96",
			Match:   between(90, 97),
			TurnOn:  func(in Input) bool { return in.PVAvailable > heaterPower },
			TurnOff: func(in Input) bool { return in.BatteryPower < 100 },
		},
		{
			Name:    "soc97-98",
			Match:   between(97, 99),
			TurnOn:  func(in Input) bool { return in.PVAvailable > heaterPower+500 },
			TurnOff: func(in Input) bool { return in.BatteryPower < 100 },
		},
		{
			Name:    "soc99",
			Match:   between(99, 100),
			TurnOn:  func(in Input) bool { return in.PVAvailable > heaterPower+300 },
			TurnOff: func(in Input) bool { return in.BatteryPower < 90 },
		},
		{
			Name:    "soc100",
			Match:   func(soc float64) bool { return soc == 100 },
			TurnOn:  func(in Input) bool { return in.PVAvailable > heaterPower },
			TurnOff: func(in Input) bool { return in.PVAvailable < 0 },
		},
	}
}

// Decision is the outcome of one evaluation. TurnOn and TurnOff are never both true.
type Decision struct {
	TurnOn   bool   `json:"turnOn"`
	TurnOff  bool   `json:"turnOff"`
	Tier     string `json:"tier,omitempty"`
	Override string `json:"override,omitempty"`
}

// Apply runs in through tiers and the override pass.
func Apply(tiers []Tier, in Input) Decision {
	d := Decision{}
	matched := false
	for _, t := range tiers {
		if !t.Match(in.SoC) {
			continue
		}
		matched = true
		d.Tier = t.Name
		d.TurnOn = t.TurnOn(in)
		d.TurnOff = t.TurnOff(in)
		break
	}
	if !matched {
		return d
	}

	if in.SoC >= overrideMinSoC {
		switch {
		case in.ExportedWh > exportForceOnWh && in.PVAvailable > 0:
			d.TurnOn, d.TurnOff = true, false
			d.Override = "export"
		case in.ExportedWh > exportKeepOnWh && in.HeaterOn:
			d.TurnOff = false
			d.Override = "keep-on"
		}
	}

	if d.TurnOn && d.TurnOff {
		d.TurnOff = false
	}
	return d
}
