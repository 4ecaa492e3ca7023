package ems

import (
	"sync"
	"time"

	"github.com/nergy-se/smartrce/pkg/api/v1/types"
	"github.com/nergy-se/smartrce/pkg/listeners"
	"github.com/nergy-se/smartrce/pkg/pricecache"
	"github.com/nergy-se/smartrce/pkg/prices"
	"github.com/sirupsen/logrus"
)

// Ems keeps the charge window plans for the cached days and the price of the
// current hour.
type Ems struct {
	today        *ChargeWindowPlan
	tomorrow     *ChargeWindowPlan
	currentPrice *float64
	currentHour  int
	listeners    listeners.List
	sync.RWMutex
}

func New() *Ems {
	return &Ems{}
}

// UpdatePrices recomputes both plans from state. A missing tomorrow clears the tomorrow plan.
func (e *Ems) UpdatePrices(now time.Time, state *pricecache.State) {
	if state == nil {
		return
	}
	var today, tomorrow *ChargeWindowPlan
	var err error
	if state.Today != nil {
		today, err = NewPlan(state.Today)
		if err != nil {
			logrus.Errorf("ems: error planning today: %s", err)
		}
	}
	if state.Tomorrow != nil {
		tomorrow, err = NewPlan(state.Tomorrow)
		if err != nil {
			logrus.Errorf("ems: error planning tomorrow: %s", err)
		}
	}

	e.Lock()
	if today != nil {
		e.today = today
	}
	e.tomorrow = tomorrow
	e.Unlock()

	if today != nil {
		logrus.WithFields(logrus.Fields{
			"day":   today.Day.Format(time.DateOnly),
			"hours": today.WindowHours,
			"start": today.StartHour,
			"end":   today.EndHour,
		}).Info("ems: charge window today")
	}
	if tomorrow != nil {
		logrus.WithFields(logrus.Fields{
			"day":   tomorrow.Day.Format(time.DateOnly),
			"hours": tomorrow.WindowHours,
			"start": tomorrow.StartHour,
			"end":   tomorrow.EndHour,
		}).Info("ems: charge window tomorrow")
	}
	e.UpdateNow(now)
}

// UpdateNow sets the current price from today's plan and notifies listeners.
// Nothing happens until a today plan exists. When now is past the day of the
// today plan the tomorrow plan takes its place, or both are dropped if
// tomorrow does not cover now either.
func (e *Ems) UpdateNow(now time.Time) {
	e.Lock()
	if e.today == nil {
		e.Unlock()
		return
	}
	if !prices.SameDay(now, e.today.Day) {
		stale := e.today.Day
		if e.tomorrow != nil && prices.SameDay(now, e.tomorrow.Day) {
			e.today, e.tomorrow = e.tomorrow, nil
		} else {
			e.today, e.tomorrow = nil, nil
			e.currentPrice = nil
			e.Unlock()
			logrus.Warnf("ems: no prices for %s, dropped plan of %s", now.Format(time.DateOnly), stale.Format(time.DateOnly))
			e.listeners.Notify()
			return
		}
		logrus.Infof("ems: rolled tomorrow plan over to today %s", e.today.Day.Format(time.DateOnly))
	}
	hour := now.In(e.today.Day.Location()).Hour()
	price := e.today.HourlyPrices[hour]
	e.currentPrice = &price
	e.currentHour = hour
	e.Unlock()

	e.listeners.Notify()
}

func (e *Ems) Plan(day types.Day) (*ChargeWindowPlan, bool) {
	e.RLock()
	defer e.RUnlock()
	var p *ChargeWindowPlan
	switch day {
	case types.DayToday:
		p = e.today
	case types.DayTomorrow:
		p = e.tomorrow
	}
	return p, p != nil
}

func (e *Ems) CurrentPrice() (float64, bool) {
	_, price, ok := e.Current()
	return price, ok
}

// Current returns the hour and price set by the last UpdateNow.
func (e *Ems) Current() (int, float64, bool) {
	e.RLock()
	defer e.RUnlock()
	if e.currentPrice == nil {
		return 0, 0, false
	}
	return e.currentHour, *e.currentPrice, true
}

// PriceAt returns today's price at hour.
func (e *Ems) PriceAt(hour int) (float64, bool) {
	e.RLock()
	defer e.RUnlock()
	if e.today == nil || hour < 0 || hour >= len(e.today.HourlyPrices) {
		return 0, false
	}
	return e.today.HourlyPrices[hour], true
}

// Subscribe registers fn to be called after every update. The returned function removes it.
func (e *Ems) Subscribe(fn func()) func() {
	return e.listeners.Add(fn)
}
