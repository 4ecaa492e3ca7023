package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/nergy-se/smartrce/pkg/api/v1/meter"
	"github.com/nergy-se/smartrce/pkg/api/v1/types"
	"github.com/nergy-se/smartrce/pkg/ems"
	"github.com/nergy-se/smartrce/pkg/loadcontrol"
	"github.com/nergy-se/smartrce/pkg/metrics"
	"github.com/nergy-se/smartrce/pkg/state"
	"github.com/nergy-se/smartrce/pkg/version"
	"github.com/sirupsen/logrus"
)

// LoadController is the part of the load controller served over http.
type LoadController interface {
	Last() (loadcontrol.Decision, bool)
}

type Server struct {
	ems        *ems.Ems
	controller LoadController
	tiers      []loadcontrol.Tier
	meters     *meter.Cache
	alarms     func() []string
	metrics    *metrics.Metrics
	token      func() string
}

type Options struct {
	Ems        *ems.Ems
	Controller LoadController
	Tiers      []loadcontrol.Tier
	Meters     *meter.Cache
	Alarms     func() []string
	Metrics    *metrics.Metrics
	// empty token disables authorization
	Token func() string
}

func New(o Options) *Server {
	return &Server{
		ems:        o.Ems,
		controller: o.Controller,
		tiers:      o.Tiers,
		meters:     o.Meters,
		alarms:     o.Alarms,
		metrics:    o.Metrics,
		token:      o.Token,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	s.handle(r, "/health", s.health).Methods(http.MethodGet)
	s.handle(r, "/api/v1/charge-window/{day}", s.chargeWindow).Methods(http.MethodGet)
	s.handle(r, "/api/v1/price/current", s.currentPrice).Methods(http.MethodGet)
	s.handle(r, "/api/v1/price/{hour:[0-9]+}", s.priceAt).Methods(http.MethodGet)
	s.handle(r, "/api/v1/load", s.lastDecision).Methods(http.MethodGet)
	s.handle(r, "/api/v1/load/evaluate", s.authorized(s.evaluate)).Methods(http.MethodPost)
	s.handle(r, "/api/v1/meter", s.meter).Methods(http.MethodGet)
	s.handle(r, "/api/v1/alarms", s.activeAlarms).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

func (s *Server) handle(r *mux.Router, path string, fn http.HandlerFunc) *mux.Route {
	var h http.Handler = fn
	if s.metrics != nil {
		h = s.metrics.Instrument(path, h)
	}
	return r.Handle(path, h)
}

// authorized requires "Authorization: Bearer <token>" when a token is configured.
func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != nil {
			if token := s.token(); token != "" && !validBearer(r.Header.Get("Authorization"), token) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next(w, r)
	}
}

func validBearer(header, token string) bool {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return false
	}
	got := strings.TrimSpace(header[len(prefix):])
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}

type priceResponse struct {
	Hour  int     `json:"hour"`
	Price float64 `json:"price"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": version.Get(),
	})
}

func (s *Server) chargeWindow(w http.ResponseWriter, r *http.Request) {
	day, err := types.ParseDay(mux.Vars(r)["day"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	plan, ok := s.ems.Plan(day)
	if !ok {
		writeError(w, http.StatusNotFound, "no prices for "+string(day))
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) currentPrice(w http.ResponseWriter, r *http.Request) {
	hour, price, ok := s.ems.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "no current price")
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{Hour: hour, Price: price})
}

func (s *Server) priceAt(w http.ResponseWriter, r *http.Request) {
	hour, err := strconv.Atoi(mux.Vars(r)["hour"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	price, ok := s.ems.PriceAt(hour)
	if !ok {
		writeError(w, http.StatusNotFound, "no price for hour "+strconv.Itoa(hour))
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{Hour: hour, Price: price})
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	snapshot := state.State{}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(&snapshot)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed telemetry: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, loadcontrol.Evaluate(s.tiers, snapshot))
}

func (s *Server) lastDecision(w http.ResponseWriter, r *http.Request) {
	d, ok := s.controller.Last()
	if !ok {
		writeError(w, http.StatusNotFound, "no decision yet")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) meter(w http.ResponseWriter, r *http.Request) {
	var d *meter.Data
	if s.meters != nil {
		d = s.meters.Get()
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "no meter reading")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) activeAlarms(w http.ResponseWriter, r *http.Request) {
	alarms := []string{}
	if s.alarms != nil {
		alarms = append(alarms, s.alarms()...)
	}
	writeJSON(w, http.StatusOK, alarms)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		logrus.Errorf("httpapi: error writing response: %s", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
