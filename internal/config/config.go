// Package config holds the settings shared by the timingbelt commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/me/timingbelt/internal/logging"
	"github.com/me/timingbelt/pkg/belt"
	"github.com/me/timingbelt/pkg/model"
)

// Config is the full runtime configuration. Durations are written as Go
// duration strings ("15ms") in YAML.
type Config struct {
	Belt   BeltConfig   `yaml:"belt"`
	Server ServerConfig `yaml:"server"`
}

// BeltConfig configures the timing belt and the loop that drives it.
type BeltConfig struct {
	Interval           time.Duration `yaml:"interval"`              // per-cycle budget (default 15ms)
	FrameRate          int           `yaml:"frame_rate"`            // frame ticker rate in Hz (default 60)
	Governor           bool          `yaml:"governor"`              // throttle idle cycles closer than Interval
	BurstIdle          bool          `yaml:"burst_idle"`            // drain jobs until the budget runs out
	MaxCyclesPerSecond int           `yaml:"max_cycles_per_second"` // 0 = unlimited
	Autorender         bool          `yaml:"autorender"`            // request a frame after every frame
}

// ServerConfig holds configuration for the inspection server.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`            // Listen address (default ":8090")
	LogLevel       string        `yaml:"log_level"`       // Log level: debug, info, warn, error
	LogFormat      string        `yaml:"log_format"`      // Log format: text, json
	DBPath         string        `yaml:"db_path"`         // SQLite trace database; empty disables tracing
	TraceRetention time.Duration `yaml:"trace_retention"` // 0 keeps traces forever
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Belt:   DefaultBeltConfig(),
		Server: DefaultServerConfig(),
	}
}

// DefaultBeltConfig returns the belt package defaults at 60 frames per second.
func DefaultBeltConfig() BeltConfig {
	return BeltConfig{
		Interval:  belt.DefaultInterval,
		FrameRate: 60,
		Governor:  belt.DefaultGovernor,
		BurstIdle: belt.DefaultBurstIdle,
	}
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:      ":8090",
		LogLevel:  "info",
		LogFormat: logging.FormatText,
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.Belt.Interval <= 0 {
		errs = append(errs, fmt.Errorf("belt.interval must be positive, got %s", c.Belt.Interval))
	}
	if c.Belt.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("belt.frame_rate must be positive, got %d", c.Belt.FrameRate))
	}
	if c.Belt.MaxCyclesPerSecond < 0 {
		errs = append(errs, fmt.Errorf("belt.max_cycles_per_second must not be negative, got %d", c.Belt.MaxCyclesPerSecond))
	}
	if c.Server.TraceRetention < 0 {
		errs = append(errs, fmt.Errorf("server.trace_retention must not be negative, got %s", c.Server.TraceRetention))
	}
	if err := logging.ValidateFormat(c.Server.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("server.log_format: %w", err))
	}
	return errors.Join(errs...)
}

// FramePeriod returns the frame ticker period for FrameRate.
func (b BeltConfig) FramePeriod() time.Duration {
	if b.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(b.FrameRate)
}

// Settings converts the belt section to the runtime settings shape.
func (b BeltConfig) Settings() model.Settings {
	return model.Settings{
		Interval:           b.Interval,
		Governor:           b.Governor,
		BurstIdle:          b.BurstIdle,
		MaxCyclesPerSecond: b.MaxCyclesPerSecond,
		Autorender:         b.Autorender,
	}
}

// Apply pushes the belt section onto tb.
func (b BeltConfig) Apply(tb *belt.TimingBelt) error {
	if err := tb.SetInterval(b.Interval); err != nil {
		return err
	}
	if err := tb.SetMaxCyclesPerSecond(b.MaxCyclesPerSecond); err != nil {
		return err
	}
	tb.SetGovernor(b.Governor)
	tb.SetBurstIdle(b.BurstIdle)
	tb.SetAutorender(b.Autorender)
	return nil
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
