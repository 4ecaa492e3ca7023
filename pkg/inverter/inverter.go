package inverter

import (
	"time"

	"github.com/nergy-se/smartrce/pkg/modbusclient"
	"github.com/nergy-se/smartrce/pkg/state"
	"github.com/nergy-se/smartrce/pkg/telemetry"
	"github.com/sirupsen/logrus"
)

// Registers holds the holding register addresses of the inverter. A negative
// address disables that reading.
type Registers struct {
	SoC          int
	BatteryPower int
	LoadPower    int
	PVPower      int
}

// Reading is one poll of the inverter. Power in W, battery power negative while charging.
type Reading struct {
	SoC          *float64
	BatteryPower *float64
	LoadPower    *float64
	PVPower      *float64
}

type Inverter struct {
	client    modbusclient.Client
	registers Registers
	battery   *telemetry.Average
	balance   *telemetry.Average
}

func New(client modbusclient.Client, registers Registers, averageWindow time.Duration) *Inverter {
	return &Inverter{
		client:    client,
		registers: registers,
		battery:   telemetry.NewAverage(averageWindow),
		balance:   telemetry.NewAverage(averageWindow),
	}
}

func (i *Inverter) Read() (Reading, error) {
	r := Reading{}
	var err error
	if r.SoC, err = i.read(i.registers.SoC); err != nil {
		return r, err
	}
	if r.BatteryPower, err = i.read(i.registers.BatteryPower); err != nil {
		return r, err
	}
	if r.LoadPower, err = i.read(i.registers.LoadPower); err != nil {
		return r, err
	}
	if r.PVPower, err = i.read(i.registers.PVPower); err != nil {
		return r, err
	}
	return r, nil
}

func (i *Inverter) read(address int) (*float64, error) {
	if address < 0 {
		return nil, nil
	}
	v, err := i.client.ReadHoldingRegister16(uint16(address))
	if err != nil {
		return nil, err
	}
	f := float64(v)
	return &f, nil
}

// Poll reads the inverter and feeds averaged values into store. A failed read
// marks the inverter signals as absent.
func (i *Inverter) Poll(now time.Time, store *telemetry.Store) error {
	r, err := i.Read()
	if err != nil {
		store.SetFloat(state.SignalBatterySoC, nil)
		store.SetFloat(state.SignalBatteryPowerAvg, nil)
		if i.registers.LoadPower >= 0 && i.registers.PVPower >= 0 {
			store.SetFloat(state.SignalConsumptionMinusPVAvg, nil)
		}
		return err
	}

	store.SetFloat(state.SignalBatterySoC, r.SoC)
	if r.BatteryPower != nil {
		avg := i.battery.Add(now, *r.BatteryPower)
		store.SetFloat(state.SignalBatteryPowerAvg, &avg)
	}
	if r.LoadPower != nil && r.PVPower != nil {
		avg := i.balance.Add(now, *r.LoadPower-*r.PVPower)
		store.SetFloat(state.SignalConsumptionMinusPVAvg, &avg)
	}

	logrus.WithFields(logrus.Fields{
		"soc":          deref(r.SoC),
		"batteryPower": deref(r.BatteryPower),
		"loadPower":    deref(r.LoadPower),
		"pvPower":      deref(r.PVPower),
	}).Debug("inverter: polled")
	return nil
}

func deref(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
