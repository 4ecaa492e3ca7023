package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

type CliConfig struct {
	LogLevel string `default:"info"`

	RceURL        string `default:"https://api.raporty.pse.pl/api/rce-pln"`
	Timezone      string `default:"Europe/Warsaw"`
	RawArchiveDir string

	MqttAddress     string `default:":1883"`
	MqttTopicPrefix string `default:"smartrce"`

	// modbus tcp host:port, empty disables polling
	InverterAddress      string
	InverterSlaveID      int `default:"1"`
	SocRegister          int `default:"-1"`
	BatteryPowerRegister int `default:"-1"`
	LoadPowerRegister    int `default:"-1"`
	PVPowerRegister      int `default:"-1"`
	PowerAverageSeconds  int `default:"120"`

	// serial device, empty disables polling
	MbusDevice       string
	MbusModel        string `default:"garo-GNM3D-MBUS"`
	MbusPrimaryID    string `default:"1"`
	MbusExportRecord int    `default:"1"`

	HTTPAddress  string  `default:":8080"`
	HeaterPowerW float64 `default:"3000"`

	// protects POST endpoints when set
	APIToken  string
	TokenFile string

	mutex sync.RWMutex
}

// Location resolves Timezone.
func (c *CliConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *CliConfig) PowerAverageWindow() time.Duration {
	return time.Duration(c.PowerAverageSeconds) * time.Second
}

func (c *CliConfig) Token() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.APIToken
}

func (c *CliConfig) SetToken(t string) {
	c.mutex.Lock()
	c.APIToken = strings.TrimSpace(t)
	c.mutex.Unlock()
}

func (c *CliConfig) LoadToken() error {
	if c.TokenFile == "" {
		return nil
	}
	if _, err := os.Stat(c.TokenFile); err == nil {
		b, err := os.ReadFile(c.TokenFile)
		if err != nil {
			return err
		}
		if len(b) == 0 {
			return nil // dont load empty token
		}

		c.SetToken(string(b))
	}
	return nil
}
