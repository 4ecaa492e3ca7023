package telemetry

import (
	"strconv"
	"strings"

	"github.com/nergy-se/smartrce/pkg/state"
	"github.com/sirupsen/logrus"
)

// ParseOnOff maps "on" and "off". Anything else is logged and returned as absent.
func ParseOnOff(sig state.Signal, raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on":
		return state.Bool(true)
	case "off":
		return state.Bool(false)
	}
	logrus.Errorf("telemetry: %s being %q cannot be mapped to bool", sig, raw)
	return nil
}

// ParseFloat maps a numeric state. Anything else is logged and returned as absent.
func ParseFloat(sig state.Signal, raw string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		logrus.Errorf("telemetry: %s being %q cannot be mapped to float", sig, raw)
		return nil
	}
	return &f
}
