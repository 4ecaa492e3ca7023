package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nergy-se/smartrce/pkg/api/v1/meter"
	"github.com/nergy-se/smartrce/pkg/ems"
	"github.com/nergy-se/smartrce/pkg/loadcontrol"
	"github.com/nergy-se/smartrce/pkg/metrics"
	"github.com/nergy-se/smartrce/pkg/pricecache"
	"github.com/nergy-se/smartrce/pkg/prices"
	"github.com/nergy-se/smartrce/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, token string) (*Server, *loadcontrol.Controller, *meter.Cache) {
	day := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	hourly := make([]float64, prices.HoursPerDay)
	for i := range hourly {
		hourly[i] = 300 + float64(i)
	}
	today, err := prices.FromHourly(day, hourly)
	require.NoError(t, err)

	e := ems.New()
	e.UpdatePrices(day.Add(13*time.Hour), &pricecache.State{FetchedAt: day, Today: today})

	c := loadcontrol.New(loadcontrol.DefaultHeaterPowerW)
	meters := &meter.Cache{}
	s := New(Options{
		Ems:        e,
		Controller: c,
		Tiers:      loadcontrol.Tiers(loadcontrol.DefaultHeaterPowerW),
		Meters:     meters,
		Alarms:     func() []string { return []string{"missing signal heater_on"} },
		Metrics:    metrics.New(),
		Token:      func() string { return token },
	})
	return s, c, meters
}

func do(t *testing.T, s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestChargeWindow(t *testing.T) {
	s, _, _ := newServer(t, "")

	rec := do(t, s, http.MethodGet, "/api/v1/charge-window/today", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	plan := &ems.ChargeWindowPlan{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(plan))
	// rising prices: every length starts at 6 so the longest wins
	assert.Equal(t, 8, plan.WindowHours)
	assert.Equal(t, 6.0, plan.StartHour)
	assert.Equal(t, 14.0, plan.EndHour)

	rec = do(t, s, http.MethodGet, "/api/v1/charge-window/tomorrow", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/charge-window/yesterday", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPrices(t *testing.T) {
	s, _, _ := newServer(t, "")

	rec := do(t, s, http.MethodGet, "/api/v1/price/current", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hour":13,"price":313}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/v1/price/7", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hour":7,"price":307}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/v1/price/24", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvaluate(t *testing.T) {
	s, _, _ := newServer(t, "")

	rec := do(t, s, http.MethodPost, "/api/v1/load/evaluate", `{
		"heaterOn": false,
		"batterySoc": 95,
		"batteryPowerAvg": -50,
		"consumptionMinusPvAvg": -3100,
		"exportedEnergyHourly": 0
	}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := loadcontrol.Decision{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&d))
	assert.True(t, d.TurnOn)
	assert.False(t, d.TurnOff)

	rec = do(t, s, http.MethodPost, "/api/v1/load/evaluate", `{"batterySoc": 95}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"turnOn":false,"turnOff":false}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/v1/load/evaluate", `{"batterySoc": "95"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/load/evaluate", `{"heaterOn": "on"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluateToken(t *testing.T) {
	s, _, _ := newServer(t, "secret")

	rec := do(t, s, http.MethodPost, "/api/v1/load/evaluate", `{}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for _, header := range []string{"secret", "Bearer wrong", "Bearer ", "Basic secret", "Bearer secretsecret"} {
		rec = do(t, s, http.MethodPost, "/api/v1/load/evaluate", `{}`, map[string]string{"Authorization": header})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/load/evaluate", `{}`, map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/load/evaluate", `{}`, map[string]string{"Authorization": "bearer secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLastDecisionAndMeter(t *testing.T) {
	s, c, meters := newServer(t, "")

	rec := do(t, s, http.MethodGet, "/api/v1/load", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/v1/meter", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c.Evaluate(loadcontrolSnapshot())
	meters.Set(&meter.Data{Id: "1", Model: "p1ib", TotalExport_WH: 1000})

	rec = do(t, s, http.MethodGet, "/api/v1/load", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"turnOn":true`)

	rec = do(t, s, http.MethodGet, "/api/v1/meter", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"export_wh":1000`)

	rec = do(t, s, http.MethodGet, "/api/v1/alarms", "", nil)
	assert.JSONEq(t, `["missing signal heater_on"]`, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	s, _, _ := newServer(t, "")

	rec := do(t, s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = do(t, s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `smartrce_http_requests_total{route="/health",status="200"} 1`)
}

func loadcontrolSnapshot() state.State {
	return state.State{
		HeaterOn:              state.Bool(false),
		BatterySoC:            state.Float(95),
		BatteryPowerAvg:       state.Float(-50),
		ConsumptionMinusPVAvg: state.Float(-3100),
		ExportedEnergyHourly:  state.Float(0),
	}
}
