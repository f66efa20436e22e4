package melviewhkb

import (
	"encoding/json"
	"os"
	"time"

	"github.com/brutella/hap/log"
)

const (
	ZoneMatchName = "name"
	ZoneMatchID   = "id"
)

type Config struct {
	Email         string  // melview account
	Password      string  // melview password
	Pin           string  // HomeKit setup pin (80899303)
	Poll          int     // seconds between status polls (5)
	Dry           bool    // expose a dehumidifier for units with DRY mode (true)
	Zones         bool    // expose zones as fans (true)
	ZoneMatch     string  // "name" or "id" ("name")
	SequenceGuard bool    // drop poll responses older than the last write (false)
	ListenAddr    string  // status and metrics http, empty disables (":8998")
	RateLimit     float64 // melview requests per second, 0 disables (2)
	Timeout       int     // seconds per melview request (10)
	MQTT          MQTTConfig
}

type MQTTConfig struct {
	Broker      string // tcp://host:1883, empty disables
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string // (melview)
}

func LoadConfig(filename string) (*Config, error) {
	conf := Config{
		Pin:        "80899303",
		Poll:       5,
		Dry:        true,
		Zones:      true,
		ZoneMatch:  ZoneMatchName,
		ListenAddr: ":8998",
		RateLimit:  2,
		Timeout:    10,
		MQTT: MQTTConfig{
			ClientID:    "melview-homekit",
			TopicPrefix: "melview",
		},
	}

	raw, err := os.ReadFile(filename)
	if err != nil {
		log.Info.Printf("unable to open config %s: using defaults", filename)
	} else if err := json.Unmarshal(raw, &conf); err != nil {
		log.Info.Printf("unable to parse config %s: %s", filename, err.Error())
		return nil, err
	}

	if e := os.Getenv("MELVIEW_EMAIL"); e != "" {
		conf.Email = e
	}
	if p := os.Getenv("MELVIEW_PASSWORD"); p != "" {
		conf.Password = p
	}
	if conf.ZoneMatch != ZoneMatchID {
		conf.ZoneMatch = ZoneMatchName
	}
	log.Info.Printf("using config: email %s poll %ds dry %t zones %t (%s)", conf.Email, conf.Poll, conf.Dry, conf.Zones, conf.ZoneMatch)

	return &conf, nil
}

// PollInterval falls back to five seconds for unset or silly values
func (c *Config) PollInterval() time.Duration {
	if c.Poll <= 0 {
		return defaultPollInterval
	}
	return time.Duration(c.Poll) * time.Second
}

// RequestTimeout bounds each melview http request
func (c *Config) RequestTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}
