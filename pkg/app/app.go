package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/nergy-se/smartrce/pkg/alarm"
	"github.com/nergy-se/smartrce/pkg/api/v1/config"
	"github.com/nergy-se/smartrce/pkg/api/v1/meter"
	"github.com/nergy-se/smartrce/pkg/api/v1/types"
	"github.com/nergy-se/smartrce/pkg/ems"
	"github.com/nergy-se/smartrce/pkg/httpapi"
	"github.com/nergy-se/smartrce/pkg/inverter"
	"github.com/nergy-se/smartrce/pkg/loadcontrol"
	"github.com/nergy-se/smartrce/pkg/mbus"
	"github.com/nergy-se/smartrce/pkg/metrics"
	"github.com/nergy-se/smartrce/pkg/modbusclient"
	"github.com/nergy-se/smartrce/pkg/mqtt"
	"github.com/nergy-se/smartrce/pkg/pricecache"
	"github.com/nergy-se/smartrce/pkg/rce"
	"github.com/nergy-se/smartrce/pkg/state"
	"github.com/nergy-se/smartrce/pkg/telemetry"
	"github.com/nergy-se/smartrce/pkg/version"
	"github.com/sirupsen/logrus"
)

const meterPollInterval = 10 * time.Second

type App struct {
	wg       *sync.WaitGroup
	config   *config.CliConfig
	location *time.Location

	cache      *pricecache.Cache
	ems        *ems.Ems
	store      *telemetry.Store
	controller *loadcontrol.Controller
	alarms     *alarm.ActiveAlarms
	meters     *meter.Cache
	export     *telemetry.HourlyCounter
	metrics    *metrics.Metrics
	broker     *mqtt.Broker
}

func New(config *config.CliConfig) *App {
	return &App{
		wg:         &sync.WaitGroup{},
		config:     config,
		ems:        ems.New(),
		controller: loadcontrol.New(config.HeaterPowerW),
		alarms:     &alarm.ActiveAlarms{},
		meters:     &meter.Cache{},
		export:     &telemetry.HourlyCounter{},
		metrics:    metrics.New(),
	}
}

func (a *App) Start(ctx context.Context) error {
	logrus.Infof("starting smartrce %s", version.Version)
	loc, err := a.config.Location()
	if err != nil {
		return err
	}
	a.location = loc

	err = a.config.LoadToken()
	if err != nil {
		return err
	}

	fetcher := rce.New(a.config.RceURL, loc, a.config.RawArchiveDir)
	a.cache = pricecache.New(fetcher, a.metrics)
	a.cache.Subscribe(func() {
		a.ems.UpdatePrices(a.now(), a.cache.Snapshot())
	})
	a.ems.Subscribe(a.publishPrices)
	a.store = telemetry.NewStore(a.alarms, a.onTelemetry)

	if a.config.MqttAddress != "" {
		a.broker, err = mqtt.Start(ctx, a.wg, a.config.MqttAddress, a.config.MqttTopicPrefix)
		if err != nil {
			return fmt.Errorf("error starting mqtt broker: %w", err)
		}
		err = a.broker.SubscribeInputs(a.store)
		if err != nil {
			return err
		}
		err = a.broker.SubscribeP1ib(a.onMeter)
		if err != nil {
			return err
		}
	}

	if a.config.InverterAddress != "" {
		client := modbusclient.Dial(a.config.InverterAddress, byte(a.config.InverterSlaveID), 5*time.Second)
		inv := inverter.New(client, inverter.Registers{
			SoC:          a.config.SocRegister,
			BatteryPower: a.config.BatteryPowerRegister,
			LoadPower:    a.config.LoadPowerRegister,
			PVPower:      a.config.PVPowerRegister,
		}, a.config.PowerAverageWindow())
		a.wg.Add(1)
		go a.inverterLoop(ctx, inv, client)
	}

	if a.config.MbusDevice != "" {
		m := mbus.New(a.config.MbusDevice, a.config.MbusExportRecord)
		a.wg.Add(1)
		go a.mbusLoop(ctx, m)
	}

	if a.config.HTTPAddress != "" {
		err = a.startHTTP(ctx)
		if err != nil {
			return err
		}
	}

	a.wg.Add(1)
	go a.controllerLoop(ctx)
	return nil
}

func (a *App) Wait() {
	a.wg.Wait()
}

func (a *App) Broker() *mqtt.Broker {
	return a.broker
}

func (a *App) now() time.Time {
	return time.Now().In(a.location)
}

func (a *App) controllerLoop(ctx context.Context) {
	defer a.wg.Done()
	delay := calculateNextDelay(a.now())
	timer := time.NewTimer(delay)
	a.DoRefresh(ctx, a.now())
	logrus.Debug("scheduling first run in ", delay)
	for {
		select {
		case <-timer.C:
			now := a.now()
			timer.Reset(calculateNextDelay(now))
			a.DoRefresh(ctx, now)
			if now.Minute() == 0 {
				a.ems.UpdateNow(now)
			}
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// DoRefresh runs one price cache refresh. Failures are retried on the next tick.
func (a *App) DoRefresh(ctx context.Context, now time.Time) {
	res, err := a.cache.Refresh(ctx, now)
	if err != nil {
		logrus.Errorf("price refresh failed, keeping last prices: %s", err)
		return
	}
	if res.Kind != pricecache.KindNoOp {
		logrus.WithFields(logrus.Fields{
			"kind": res.Kind,
			"at":   now.Format(time.RFC3339),
		}).Info("prices refreshed")
	}
}

func (a *App) inverterLoop(ctx context.Context, inv *inverter.Inverter, client modbusclient.Client) {
	defer a.wg.Done()
	defer client.Close()
	ticker := time.NewTicker(meterPollInterval)
	defer ticker.Stop()
	for {
		err := inv.Poll(a.now(), a.store)
		if err != nil {
			logrus.Errorf("error polling inverter: %s", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) mbusLoop(ctx context.Context, m *mbus.Mbus) {
	defer a.wg.Done()
	defer m.Close()
	ticker := time.NewTicker(meterPollInterval)
	defer ticker.Stop()
	for {
		d, err := m.ReadValues(a.config.MbusModel, a.config.MbusPrimaryID)
		if err != nil {
			logrus.Errorf("error reading mbus meter: %s", err)
			a.store.SetFloat(state.SignalExportedEnergyHourly, nil)
		} else {
			a.onMeter(*d)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) onMeter(d meter.Data) {
	if d.Time.IsZero() {
		d.Time = a.now()
	}
	a.meters.Set(&d)
	exported := a.export.Update(d.Time, d.ExportKWh())
	a.store.SetFloat(state.SignalExportedEnergyHourly, &exported)
}

func (a *App) onTelemetry(s state.State) {
	d, changed := a.controller.Evaluate(s)
	a.metrics.SetDecision(d.TurnOn, d.TurnOff)
	a.metrics.SetActiveAlarms(len(a.alarms.List()))
	if !changed || a.broker == nil {
		return
	}
	err := a.broker.Publish("water_heater/turn_on", mqtt.OnOff(d.TurnOn))
	if err != nil {
		logrus.Error(err)
	}
	err = a.broker.Publish("water_heater/turn_off", mqtt.OnOff(d.TurnOff))
	if err != nil {
		logrus.Error(err)
	}
}

func (a *App) publishPrices() {
	hour, price, hasPrice := a.ems.Current()
	if hasPrice {
		a.metrics.SetCurrentPrice(price)
	}
	for _, day := range []types.Day{types.DayToday, types.DayTomorrow} {
		plan, ok := a.ems.Plan(day)
		if ok {
			a.metrics.SetChargeWindow(string(day), plan.StartHour, plan.WindowHours)
		} else {
			a.metrics.ClearChargeWindow(string(day))
		}
		if a.broker == nil {
			continue
		}
		var err error
		if ok {
			err = a.broker.PublishJSON("charge_window/"+string(day), plan)
		} else {
			err = a.broker.Publish("charge_window/"+string(day), []byte("null"))
		}
		if err != nil {
			logrus.Error(err)
		}
	}
	if a.broker != nil && hasPrice {
		err := a.broker.Publish("price/current", []byte(strconv.FormatFloat(price, 'f', -1, 64)))
		if err != nil {
			logrus.Error(err)
		}
		logrus.WithFields(logrus.Fields{"hour": hour, "price": price}).Debug("published current price")
	}
}

func (a *App) startHTTP(ctx context.Context) error {
	api := httpapi.New(httpapi.Options{
		Ems:        a.ems,
		Controller: a.controller,
		Tiers:      loadcontrol.Tiers(a.config.HeaterPowerW),
		Meters:     a.meters,
		Alarms:     a.alarms.List,
		Metrics:    a.metrics,
		Token:      a.config.Token,
	})
	logWriter := logrus.StandardLogger().WriterLevel(logrus.DebugLevel)
	srv := &http.Server{
		Addr:              a.config.HTTPAddress,
		Handler:           handlers.LoggingHandler(logWriter, api.Router()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer logWriter.Close()
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.Errorf("error shutting down http server: %s", err)
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("error starting http server: %w", err)
	case <-time.After(100 * time.Millisecond):
	}
	logrus.Infof("http api listening on %s", a.config.HTTPAddress)
	return nil
}
