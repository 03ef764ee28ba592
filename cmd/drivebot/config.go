package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v2"

	"github.com/sweeney/drivebot/internal/gpio"
	"github.com/sweeney/drivebot/internal/logic"
	"github.com/sweeney/drivebot/internal/status"
)

// Supported GPIO backends.
const (
	backendCdev   = "cdev"
	backendPeriph = "periph"
)

// config is the daemon configuration. Values are layered: built-in defaults,
// then the YAML file named by --config, then DRIVEBOT_* environment
// variables, then command-line flags.
type config struct {
	ConfigFile string `long:"config" env:"DRIVEBOT_CONFIG" description:"Optional YAML configuration file" yaml:"-"`

	Backend       string        `long:"backend" env:"DRIVEBOT_BACKEND" choice:"cdev" choice:"periph" description:"GPIO backend" yaml:"backend"`
	Chip          string        `long:"chip" env:"DRIVEBOT_CHIP" description:"GPIO character device (cdev backend)" yaml:"chip"`
	Poll          time.Duration `long:"poll" env:"DRIVEBOT_POLL" description:"Control loop interval" yaml:"poll"`
	Debounce      time.Duration `long:"debounce" env:"DRIVEBOT_DEBOUNCE" description:"Button debounce window" yaml:"debounce"`
	MinRange      int           `long:"min-range" env:"DRIVEBOT_MIN_RANGE" description:"Stop when an obstacle is closer than this many cm" yaml:"min_range"`
	SonarInterval time.Duration `long:"sonar-interval" env:"DRIVEBOT_SONAR_INTERVAL" description:"Ultrasonic sampling interval" yaml:"sonar_interval"`
	Heartbeat     time.Duration `long:"heartbeat" env:"DRIVEBOT_HEARTBEAT" description:"Heartbeat interval (0 to disable)" yaml:"heartbeat"`
	Broker        string        `long:"broker" env:"DRIVEBOT_BROKER" description:"MQTT broker address (empty to disable)" yaml:"broker"`
	HTTP          string        `long:"http" env:"DRIVEBOT_HTTP" description:"HTTP status address (empty to disable)" yaml:"http"`
	Push          time.Duration `long:"push" env:"DRIVEBOT_PUSH" description:"Websocket status push interval" yaml:"push"`

	Pins gpio.Pins `group:"Pins" namespace:"pin" env-namespace:"DRIVEBOT_PIN" yaml:"pins"`

	Debug       bool `long:"debug" env:"DRIVEBOT_DEBUG" description:"Enable debug logging" yaml:"debug"`
	PrintState  bool `long:"print-state" description:"Print button and distance, then exit" yaml:"-"`
	CheckButton bool `long:"check-button" description:"Report debounced press-releases until interrupted" yaml:"-"`
}

func defaultConfig() *config {
	return &config{
		Backend:       backendCdev,
		Chip:          gpio.DefaultChip,
		Poll:          10 * time.Millisecond,
		Debounce:      500 * time.Millisecond,
		MinRange:      10,
		SonarInterval: 60 * time.Millisecond,
		Heartbeat:     15 * time.Minute,
		HTTP:          ":8080",
		Push:          time.Second,
		Pins:          gpio.DefaultPins(),
	}
}

// loadConfig parses args on top of the defaults and the optional YAML file.
// Options without a default tag keep whatever the struct already holds, so
// the file only has to be applied before the real parse.
func loadConfig(args []string) (*config, error) {
	var pre struct {
		ConfigFile string `long:"config" env:"DRIVEBOT_CONFIG"`
	}
	if _, err := flags.NewParser(&pre, flags.IgnoreUnknown).ParseArgs(args); err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if pre.ConfigFile != "" {
		if err := loadYAML(pre.ConfigFile, cfg); err != nil {
			return nil, err
		}
	}

	parser := flags.NewParser(cfg, flags.Default)
	parser.NamespaceDelimiter = "-"
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *config) validate() error {
	if c.Backend != backendCdev && c.Backend != backendPeriph {
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Poll <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.SonarInterval <= 0 {
		return errors.New("sonar interval must be positive")
	}
	if c.Heartbeat < 0 {
		return errors.New("heartbeat interval must not be negative")
	}
	if err := c.controllerConfig().Validate(); err != nil {
		return err
	}

	seen := make(map[int]string)
	for _, p := range []struct {
		name string
		pin  int
	}{
		{"button", c.Pins.Button},
		{"trigger", c.Pins.Trigger},
		{"echo", c.Pins.Echo},
		{"left-a", c.Pins.LeftA},
		{"left-b", c.Pins.LeftB},
		{"right-a", c.Pins.RightA},
		{"right-b", c.Pins.RightB},
	} {
		if p.pin < 0 {
			return fmt.Errorf("pin %s: invalid BCM number %d", p.name, p.pin)
		}
		if other, ok := seen[p.pin]; ok {
			return fmt.Errorf("pin %s: BCM %d already used by %s", p.name, p.pin, other)
		}
		seen[p.pin] = p.name
	}
	return nil
}

func (c *config) controllerConfig() logic.Config {
	return logic.Config{
		MinimumRangeCm: c.MinRange,
		DebounceWindow: c.Debounce,
	}
}

func (c *config) statusConfig() status.Config {
	return status.Config{
		Backend:         c.Backend,
		PollMs:          c.Poll.Milliseconds(),
		DebounceMs:      c.Debounce.Milliseconds(),
		MinRangeCm:      c.MinRange,
		SonarIntervalMs: c.SonarInterval.Milliseconds(),
		HeartbeatMs:     c.Heartbeat.Milliseconds(),
		Broker:          c.Broker,
		HTTPAddr:        c.HTTP,
	}
}
