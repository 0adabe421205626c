package nav

import (
	"fmt"
	"time"
)

// Gains holds the tuning constants for a single PID loop.
type Gains struct {
	Kp float64 `yaml:"kp" json:"kp"`
	Ki float64 `yaml:"ki" json:"ki"`
	Kd float64 `yaml:"kd" json:"kd"`
}

func (g Gains) Validate() error {
	if g.Kp < 0 || g.Ki < 0 || g.Kd < 0 {
		return fmt.Errorf("nav.Gains: gains must not be negative: kp=%g ki=%g kd=%g", g.Kp, g.Ki, g.Kd)
	}
	return nil
}

// PID is a proportional-integral-derivative loop with a fixed setpoint of
// zero. The loop is stateful across calls: it accumulates the integral
// term over the elapsed time between calls and derives the derivative
// term from the change in error. Time is always supplied by the caller,
// never read from a clock, so a mission can be replayed deterministically.
type PID struct {
	gains Gains

	integral float64
	prevErr  float64
	lastTime time.Time
}

// NewPID creates a loop with the given gains and no accumulated state.
func NewPID(gains Gains) *PID {
	return &PID{gains: gains}
}

// Update advances the loop with a new measurement taken at now and
// returns the control output. The error is the distance of the input
// from the zero setpoint. The first call after construction or Reset
// produces a purely proportional output.
func (p *PID) Update(input float64, now time.Time) float64 {
	err := -input

	if p.lastTime.IsZero() {
		p.lastTime = now
		p.prevErr = err
		return p.gains.Kp * err
	}

	dt := now.Sub(p.lastTime).Seconds()
	if dt <= 0 {
		// Same-timestamp call: no time has passed, so the integral and
		// derivative terms cannot advance.
		p.prevErr = err
		return p.gains.Kp*err + p.gains.Ki*p.integral
	}

	p.integral += err * dt
	derivative := (err - p.prevErr) / dt

	p.prevErr = err
	p.lastTime = now

	return p.gains.Kp*err + p.gains.Ki*p.integral + p.gains.Kd*derivative
}

// Reset zeroes the accumulated integral and stored previous error without
// altering the gains. It is never called implicitly: callers that want
// windup mitigation after a target loss must invoke it themselves.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.lastTime = time.Time{}
}
