package ems

import (
	"testing"
	"time"

	"github.com/nergy-se/smartrce/pkg/api/v1/types"
	"github.com/nergy-se/smartrce/pkg/pricecache"
	"github.com/nergy-se/smartrce/pkg/prices"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourly(base float64) []float64 {
	p := make([]float64, prices.HoursPerDay)
	for i := range p {
		p[i] = base + float64(i)
	}
	return p
}

func TestEmsUpdatePrices(t *testing.T) {
	day := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	today, err := prices.FromHourly(day, hourly(100))
	require.NoError(t, err)
	tomorrow, err := prices.FromHourly(day.AddDate(0, 0, 1), hourly(200))
	require.NoError(t, err)

	e := New()
	notified := 0
	remove := e.Subscribe(func() { notified++ })

	_, ok := e.CurrentPrice()
	assert.False(t, ok)
	e.UpdateNow(day.Add(5 * time.Hour))
	assert.Equal(t, 0, notified)

	e.UpdatePrices(day.Add(13*time.Hour+20*time.Minute), &pricecache.State{FetchedAt: day, Today: today, Tomorrow: tomorrow})
	assert.Equal(t, 1, notified)

	price, ok := e.CurrentPrice()
	assert.True(t, ok)
	assert.Equal(t, 113.0, price)

	price, ok = e.PriceAt(7)
	assert.True(t, ok)
	assert.Equal(t, 107.0, price)
	_, ok = e.PriceAt(24)
	assert.False(t, ok)

	plan, ok := e.Plan(types.DayToday)
	require.True(t, ok)
	assert.Equal(t, day, plan.Day)
	plan, ok = e.Plan(types.DayTomorrow)
	require.True(t, ok)
	assert.Equal(t, day.AddDate(0, 0, 1), plan.Day)

	e.UpdatePrices(day.Add(14*time.Hour), &pricecache.State{FetchedAt: day, Today: today})
	_, ok = e.Plan(types.DayTomorrow)
	assert.False(t, ok)
	assert.Equal(t, 2, notified)

	remove()
	e.UpdateNow(day.Add(15 * time.Hour))
	assert.Equal(t, 2, notified)
	price, _ = e.CurrentPrice()
	assert.Equal(t, 115.0, price)
}

func TestEmsUpdateNowNextDay(t *testing.T) {
	day := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	today, err := prices.FromHourly(day, hourly(100))
	require.NoError(t, err)
	tomorrow, err := prices.FromHourly(day.AddDate(0, 0, 1), hourly(200))
	require.NoError(t, err)

	e := New()
	e.UpdatePrices(day.Add(20*time.Hour), &pricecache.State{FetchedAt: day, Today: today, Tomorrow: tomorrow})

	// refresh failed at midnight, yesterday's tomorrow becomes today
	e.UpdateNow(day.Add(25 * time.Hour))
	plan, ok := e.Plan(types.DayToday)
	require.True(t, ok)
	assert.Equal(t, day.AddDate(0, 0, 1), plan.Day)
	_, ok = e.Plan(types.DayTomorrow)
	assert.False(t, ok)
	price, ok := e.CurrentPrice()
	assert.True(t, ok)
	assert.Equal(t, 201.0, price)

	notified := 0
	e.Subscribe(func() { notified++ })

	// no prices for the day after, nothing is served as today
	e.UpdateNow(day.Add(48 * time.Hour))
	assert.Equal(t, 1, notified)
	_, ok = e.Plan(types.DayToday)
	assert.False(t, ok)
	_, ok = e.CurrentPrice()
	assert.False(t, ok)
	_, ok = e.PriceAt(3)
	assert.False(t, ok)
}
