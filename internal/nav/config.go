package nav

import (
	"fmt"
	"time"
)

// Config carries every engine parameter. All fields are required; there
// are no defaults at the engine boundary, and Validate rejects any value
// the control law cannot operate with.
type Config struct {
	// Per-axis PID gains.
	Lateral      Gains `yaml:"lateral" json:"lateral"`
	Longitudinal Gains `yaml:"longitudinal" json:"longitudinal"`
	Yaw          Gains `yaml:"yaw" json:"yaw"`

	// Threshold is the acquisition distance in pixels: a target marker
	// observed at or below this distance counts as reached. The same
	// value gates both the aligning and approaching transitions.
	Threshold float64 `yaml:"threshold" json:"threshold"`

	// TargetX and TargetY form the fixed image-space reference point the
	// detector measures marker distance against. Both also serve as the
	// normalisation denominators for the horizontal and vertical image
	// errors, so they must be positive.
	TargetX float64 `yaml:"targetX" json:"targetX"`
	TargetY float64 `yaml:"targetY" json:"targetY"`

	// TargetHeight is the initial altitude setpoint in centimeters. The
	// operator can move it mid-flight through Engine.SetTargetHeight.
	TargetHeight float64 `yaml:"targetHeight" json:"targetHeight"`

	// HeightTolerance is the half-width of the altitude dead band in
	// centimeters, used both for the takeoff gate and vertical control.
	HeightTolerance float64 `yaml:"heightTolerance" json:"heightTolerance"`

	// ClimbRate and DescendRate are the fixed vertical command magnitudes.
	// Vertical control is bang-bang, not PID driven.
	ClimbRate   int `yaml:"climbRate" json:"climbRate"`
	DescendRate int `yaml:"descendRate" json:"descendRate"`

	// CommandLimit is the symmetric clamp bound applied independently to
	// every command field.
	CommandLimit int `yaml:"commandLimit" json:"commandLimit"`

	// LandingMarkerID is the reserved identity that terminates the
	// mission instead of advancing the sequence.
	LandingMarkerID int `yaml:"landingMarkerID" json:"landingMarkerID"`

	// TargetLostTimeout is how long the current target may go unsighted
	// before the tracker reports it lost.
	TargetLostTimeout time.Duration `yaml:"-" json:"-"`

	// MaxIDStaleTimeout is how long the highest-observed-identity
	// estimate may go without an update before it is considered stale.
	MaxIDStaleTimeout time.Duration `yaml:"-" json:"-"`
}

func (c *Config) Validate() error {
	if err := c.Lateral.Validate(); err != nil {
		return fmt.Errorf("nav.Config: lateral: %w", err)
	}
	if err := c.Longitudinal.Validate(); err != nil {
		return fmt.Errorf("nav.Config: longitudinal: %w", err)
	}
	if err := c.Yaw.Validate(); err != nil {
		return fmt.Errorf("nav.Config: yaw: %w", err)
	}
	if c.Threshold <= 0 {
		return fmt.Errorf("nav.Config: threshold must be positive: %g", c.Threshold)
	}
	if c.TargetX <= 0 || c.TargetY <= 0 {
		return fmt.Errorf("nav.Config: image target point must be positive: (%g, %g)", c.TargetX, c.TargetY)
	}
	if c.TargetHeight <= 0 {
		return fmt.Errorf("nav.Config: target height must be positive: %g", c.TargetHeight)
	}
	if c.HeightTolerance < 0 {
		return fmt.Errorf("nav.Config: height tolerance must not be negative: %g", c.HeightTolerance)
	}
	if c.ClimbRate <= 0 || c.DescendRate <= 0 {
		return fmt.Errorf("nav.Config: climb and descend rates must be positive: %d, %d", c.ClimbRate, c.DescendRate)
	}
	if c.CommandLimit <= 0 {
		return fmt.Errorf("nav.Config: command limit must be positive: %d", c.CommandLimit)
	}
	if c.ClimbRate > c.CommandLimit || c.DescendRate > c.CommandLimit {
		return fmt.Errorf("nav.Config: climb and descend rates must not exceed the command limit %d", c.CommandLimit)
	}
	if c.LandingMarkerID < 0 {
		return fmt.Errorf("nav.Config: landing marker identity must not be negative: %d", c.LandingMarkerID)
	}
	if c.TargetLostTimeout <= 0 {
		return fmt.Errorf("nav.Config: target lost timeout must be positive: %s", c.TargetLostTimeout)
	}
	if c.MaxIDStaleTimeout <= 0 {
		return fmt.Errorf("nav.Config: max id staleness timeout must be positive: %s", c.MaxIDStaleTimeout)
	}
	return nil
}
