package loadcontrol

import (
	"sync"

	"github.com/nergy-se/smartrce/pkg/state"
	"github.com/sirupsen/logrus"
)

// NewInput derives the rule inputs from a snapshot. ok is false if any signal is absent.
func NewInput(s state.State) (in Input, ok bool) {
	if !s.Complete() {
		return Input{}, false
	}
	return Input{
		SoC:          *s.BatterySoC,
		PVAvailable:  -*s.ConsumptionMinusPVAvg,
		BatteryPower: -*s.BatteryPowerAvg,
		ExportedWh:   *s.ExportedEnergyHourly * 1000,
		HeaterOn:     *s.HeaterOn,
	}, true
}

// Evaluate returns the decision for s using tiers. Absent signals give the neutral decision.
func Evaluate(tiers []Tier, s state.State) Decision {
	in, ok := NewInput(s)
	if !ok {
		return Decision{}
	}
	return Apply(tiers, in)
}

// Controller evaluates snapshots and remembers the last decision.
type Controller struct {
	tiers []Tier
	last  *Decision
	mutex sync.Mutex
}

func New(heaterPower float64) *Controller {
	return &Controller{
		tiers: Tiers(heaterPower),
	}
}

// Evaluate returns the decision for s and whether it differs from the previous one.
func (c *Controller) Evaluate(s state.State) (Decision, bool) {
	d := Evaluate(c.tiers, s)

	c.mutex.Lock()
	changed := c.last == nil || c.last.TurnOn != d.TurnOn || c.last.TurnOff != d.TurnOff
	c.last = &d
	c.mutex.Unlock()

	if changed {
		logrus.WithFields(logrus.Fields{
			"turnOn":   d.TurnOn,
			"turnOff":  d.TurnOff,
			"tier":     d.Tier,
			"override": d.Override,
			"missing":  s.Missing(),
		}).Info("loadcontrol: decision changed")
	}
	return d, changed
}

// Last returns the previous decision, ok is false before the first evaluation.
func (c *Controller) Last() (Decision, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.last == nil {
		return Decision{}, false
	}
	return *c.last, true
}
