package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/marker-navigation/internal/drone"
	"github.com/roman-kulish/marker-navigation/internal/nav"
	"github.com/roman-kulish/marker-navigation/internal/vision/apriltag"
	"github.com/roman-kulish/marker-navigation/internal/vision/aruco"
)

const (
	DetectorAruco    = "aruco"
	DetectorApriltag = "apriltag"
)

type TimeDuration time.Duration

func NewTimeDuration(d time.Duration) TimeDuration {
	return TimeDuration(d)
}

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d *TimeDuration) MarshalYAML() (interface{}, error) {
	return time.Duration(*d).String(), nil
}

func (d *TimeDuration) Duration() time.Duration {
	return time.Duration(*d)
}

// Config represents the main application configuration
type Config struct {
	Settings   Settings         `yaml:"settings"`
	Vision     VisionConfig     `yaml:"vision"`
	Navigation NavigationConfig `yaml:"navigation"`
	Drone      drone.Config     `yaml:"drone"`
	Operator   OperatorConfig   `yaml:"operator"`
	Storage    StorageConfig    `yaml:"storage"`
}

func (c *Config) Validate() error {
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if err := c.Vision.Validate(); err != nil {
		return err
	}
	if err := c.Navigation.Validate(); err != nil {
		return err
	}
	if err := c.Drone.Validate(); err != nil {
		return err
	}
	if err := c.Operator.Validate(); err != nil {
		return err
	}
	return nil
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`

	level slog.Level
}

func (s *Settings) Validate() error {
	if s.LogLevel == "" {
		s.level = slog.LevelInfo
		return nil
	}
	if err := s.level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return fmt.Errorf("app.Settings: invalid log level '%s': %w", s.LogLevel, err)
	}
	return nil
}

// Level returns the parsed log level. Validate must have been called.
func (s *Settings) Level() slog.Level {
	return s.level
}

// VisionConfig selects and configures the marker detector
type VisionConfig struct {
	Name     string           `yaml:"name"`
	Type     string           `yaml:"type"`
	Aruco    *aruco.Config    `yaml:"aruco"`
	Apriltag *apriltag.Config `yaml:"apriltag"`
}

func (c *VisionConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("app.VisionConfig: device name is required")
	}

	switch c.Type {
	case DetectorAruco:
		if c.Aruco == nil {
			return fmt.Errorf("app.VisionConfig: aruco detector requires an 'aruco' section")
		}
		return c.Aruco.Validate()

	case DetectorApriltag:
		if c.Apriltag == nil {
			return fmt.Errorf("app.VisionConfig: apriltag detector requires an 'apriltag' section")
		}
		return c.Apriltag.Validate()

	default:
		return fmt.Errorf("app.VisionConfig: unknown detector type '%s'", c.Type)
	}
}

// DetectorConfig returns the configuration of the selected detector.
func (c *VisionConfig) DetectorConfig() any {
	switch c.Type {
	case DetectorAruco:
		return c.Aruco
	case DetectorApriltag:
		return c.Apriltag
	default:
		return nil
	}
}

// NavigationConfig carries the control engine parameters plus the loop
// timing the engine itself is agnostic of.
type NavigationConfig struct {
	nav.Config `yaml:",inline"`

	TargetLostTimeout TimeDuration `yaml:"targetLostTimeout"`
	MaxIDStaleTimeout TimeDuration `yaml:"maxIDStaleTimeout"`

	// TickInterval is the control loop period.
	TickInterval TimeDuration `yaml:"tickInterval"`

	// SearchYawRate is the fixed rotation command issued while the target
	// is lost and no frame shows it.
	SearchYawRate int `yaml:"searchYawRate"`

	// ResetPIDOnReacquire clears accumulated PID state when the target
	// comes back into view after being lost.
	ResetPIDOnReacquire bool `yaml:"resetPIDOnReacquire"`
}

// applyDefaults fills unset parameters with the stock tuning for a
// 320x240 camera frame. TargetHeight has no default; every airframe
// needs its own.
func (c *NavigationConfig) applyDefaults() {
	if c.Lateral == (nav.Gains{}) {
		c.Lateral = nav.Gains{Kp: 1.5, Ki: 0.1, Kd: 0.15}
	}
	if c.Longitudinal == (nav.Gains{}) {
		c.Longitudinal = nav.Gains{Kp: 1.0, Ki: 0.1, Kd: 0.15}
	}
	if c.Yaw == (nav.Gains{}) {
		c.Yaw = nav.Gains{Kp: 0.8}
	}
	if c.Threshold == 0 {
		c.Threshold = 25
	}
	if c.TargetX == 0 {
		c.TargetX = 160
	}
	if c.TargetY == 0 {
		c.TargetY = 192
	}
	if c.HeightTolerance == 0 {
		c.HeightTolerance = 4
	}
	if c.ClimbRate == 0 {
		c.ClimbRate = 20
	}
	if c.DescendRate == 0 {
		c.DescendRate = 20
	}
	if c.CommandLimit == 0 {
		c.CommandLimit = 100
	}
	if c.TargetLostTimeout == 0 {
		c.TargetLostTimeout = NewTimeDuration(3 * time.Second)
	}
	if c.MaxIDStaleTimeout == 0 {
		c.MaxIDStaleTimeout = NewTimeDuration(5 * time.Second)
	}
	if c.TickInterval == 0 {
		c.TickInterval = NewTimeDuration(defaultTickInterval)
	}
}

func (c *NavigationConfig) Validate() error {
	c.applyDefaults()

	if c.TickInterval.Duration() <= 0 {
		return fmt.Errorf("app.NavigationConfig: tick interval must be positive: %s", c.TickInterval.Duration())
	}
	if c.SearchYawRate < 0 || c.SearchYawRate > c.CommandLimit {
		return fmt.Errorf("app.NavigationConfig: search yaw rate must be in [0, %d]: %d", c.CommandLimit, c.SearchYawRate)
	}
	cfg := c.engineConfig()
	return cfg.Validate()
}

// engineConfig folds the yaml-level timeouts into the engine parameter set.
func (c *NavigationConfig) engineConfig() nav.Config {
	cfg := c.Config
	cfg.TargetLostTimeout = c.TargetLostTimeout.Duration()
	cfg.MaxIDStaleTimeout = c.MaxIDStaleTimeout.Duration()
	return cfg
}

// OperatorConfig represents the operator command channel settings
type OperatorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

func (c *OperatorConfig) Validate() error {
	if c.Enabled && c.Listen == "" {
		return fmt.Errorf("app.OperatorConfig: listen address is required when enabled")
	}
	return nil
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

// LoadConfig reads, parses and validates the application configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration file: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &config, nil
}
