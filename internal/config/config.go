package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gpsbeacon/internal/sim"
)

type Config struct {
	GPS     GPSConfig     `yaml:"gps"`
	Web     WebConfig     `yaml:"web"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Forward ForwardConfig `yaml:"forward"`
	Log     LogConfig     `yaml:"log"`
}

type GPSConfig struct {
	Enable   bool          `yaml:"enable"`
	Source   string        `yaml:"source"`
	Device   string        `yaml:"device"`
	Baud     int           `yaml:"baud"`
	Backend  string        `yaml:"backend"`
	GPSDAddr string        `yaml:"gpsd_addr"`
	File     string        `yaml:"file"`
	FileRate float64       `yaml:"file_rate"`
	FileLoop bool          `yaml:"file_loop"`
	Tick     time.Duration `yaml:"tick"`

	// StaleAfter is fixed by the engine; it is accepted only so configs can
	// state it explicitly.
	StaleAfter time.Duration `yaml:"stale_after"`

	Sim sim.OwnshipSim `yaml:"sim"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

type MQTTConfig struct {
	Enable   bool          `yaml:"enable"`
	Broker   string        `yaml:"broker"`
	ClientID string        `yaml:"client_id"`
	Topic    string        `yaml:"topic"`
	Interval time.Duration `yaml:"interval"`
	QoS      byte          `yaml:"qos"`
	Retained bool          `yaml:"retained"`
}

type ForwardConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	BufferLines int    `yaml:"buffer_lines"`
}

const staleAfter = 5 * time.Second

var (
	validSources  = map[string]bool{"serial": true, "gpsd": true, "file": true, "sim": true}
	validBackends = map[string]bool{"termios": true, "goserial": true}
	validBauds    = map[int]bool{4800: true, 9600: true, 19200: true, 38400: true, 57600: true, 115200: true, 230400: true}
	validLevels   = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultAndValidate fills defaults in place and rejects inconsistent settings.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	g := &cfg.GPS
	g.Source = strings.ToLower(strings.TrimSpace(g.Source))
	if g.Source == "" {
		g.Source = "serial"
	}
	if !validSources[g.Source] {
		return fmt.Errorf("gps.source must be one of serial, gpsd, file, sim")
	}
	g.Backend = strings.ToLower(strings.TrimSpace(g.Backend))
	if g.Backend == "" {
		g.Backend = "termios"
	}
	if !validBackends[g.Backend] {
		return fmt.Errorf("gps.backend must be termios or goserial")
	}
	if g.Baud == 0 {
		g.Baud = 9600
	}
	if !validBauds[g.Baud] {
		return fmt.Errorf("gps.baud %d is not supported", g.Baud)
	}
	if g.Source == "gpsd" && strings.TrimSpace(g.GPSDAddr) == "" {
		g.GPSDAddr = "127.0.0.1:2947"
	}
	if g.Source == "file" {
		if strings.TrimSpace(g.File) == "" {
			return fmt.Errorf("gps.file is required when gps.source is 'file'")
		}
		if g.FileRate < 0 {
			return fmt.Errorf("gps.file_rate must be > 0")
		}
		if g.FileRate == 0 {
			g.FileRate = 10
		}
	}
	if g.Tick <= 0 {
		g.Tick = 100 * time.Millisecond
	}
	if g.Tick >= staleAfter {
		return fmt.Errorf("gps.tick must be shorter than %s", staleAfter)
	}
	if g.StaleAfter == 0 {
		g.StaleAfter = staleAfter
	}
	if g.StaleAfter != staleAfter {
		return fmt.Errorf("gps.stale_after is fixed at %s", staleAfter)
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	if cfg.MQTT.Enable {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "gpsbeacon"
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "gpsbeacon/fix"
	}
	if cfg.MQTT.Interval <= 0 {
		cfg.MQTT.Interval = 1 * time.Second
	}

	if cfg.Forward.Enable && cfg.Forward.Dest == "" {
		return fmt.Errorf("forward.dest is required when forward.enable is true")
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	if cfg.Log.BufferLines <= 0 {
		cfg.Log.BufferLines = 2000
	}
	return nil
}
