package nav

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"
)

// WithLogger sets the logger for the engine.
func WithLogger(logger *slog.Logger) func(e *Engine) {
	return func(e *Engine) {
		e.logger = logger.With(slog.String("component", "nav"))
	}
}

// Engine is the marker-sequenced navigation state machine and control
// law. One call to Tick consumes one frame of observations and one
// altitude sample, and produces one bounded command vector plus a state
// snapshot for telemetry.
//
// The engine is single-threaded and performs no I/O: all timing comes in
// as caller-supplied monotonic timestamps. A single instance must not be
// ticked from more than one goroutine concurrently.
type Engine struct {
	cfg          Config
	targetHeight float64

	phase   Phase
	tracker *Tracker

	pidLateral      *PID
	pidLongitudinal *PID
	pidYaw          *PID

	logger *slog.Logger
}

// New creates an engine in the takeoff phase, pursuing marker identity 1,
// with tracker timers seeded from now. The configuration is validated up
// front; a bad parameter fails here rather than mid-mission.
func New(cfg Config, now time.Time, options ...func(e *Engine)) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	e := Engine{
		cfg:             cfg,
		targetHeight:    cfg.TargetHeight,
		phase:           PhaseTakeoff,
		tracker:         NewTracker(cfg.TargetLostTimeout, cfg.MaxIDStaleTimeout, now),
		pidLateral:      NewPID(cfg.Lateral),
		pidLongitudinal: NewPID(cfg.Longitudinal),
		pidYaw:          NewPID(cfg.Yaw),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&e)
	}

	return &e, nil
}

// Tick runs one control cycle: tracker update, phase transition
// evaluation, then the control law. The command in the returned snapshot
// is computed against the phase the tick entered with, so the cycle that
// completes alignment still steers with rotation only.
func (e *Engine) Tick(observations []Observation, height float64, now time.Time) Snapshot {
	e.tracker.Update(observations, now)
	target := e.tracker.Target(observations)

	phase := e.phase
	e.transition(target, height)
	cmd := e.control(phase, target, height, now)

	return Snapshot{
		Timestamp:    now,
		Phase:        e.phase,
		TargetID:     e.tracker.TargetID(),
		ReachedID:    e.tracker.ReachedID(),
		MaxID:        e.tracker.MaxID(),
		Height:       height,
		TargetHeight: e.targetHeight,
		Marker:       target,
		Command:      cmd,
	}
}

// SetTargetHeight moves the altitude setpoint mid-flight, in the same
// centimeter units as the height samples supplied to Tick.
func (e *Engine) SetTargetHeight(cm float64) {
	e.targetHeight = cm
	e.logger.Info("target height updated", slog.Float64("targetHeight", cm))
}

// TargetHeight returns the current altitude setpoint.
func (e *Engine) TargetHeight() float64 { return e.targetHeight }

// Phase returns the active flight phase.
func (e *Engine) Phase() Phase { return e.phase }

// IsTargetLost reports whether the current target marker has gone
// unsighted longer than the configured timeout.
func (e *Engine) IsTargetLost(now time.Time) bool {
	return e.tracker.IsTargetLost(now)
}

// ShouldRefreshMaxID reports whether the furthest-marker-seen estimate
// has gone stale.
func (e *Engine) ShouldRefreshMaxID(now time.Time) bool {
	return e.tracker.ShouldRefreshMaxID(now)
}

// ResetPID zeroes the accumulated state of all three PID loops. The
// engine never does this on its own; callers opt in, typically after
// re-acquiring a target, to shed integral windup built up across the
// loss.
func (e *Engine) ResetPID() {
	e.pidLateral.Reset()
	e.pidLongitudinal.Reset()
	e.pidYaw.Reset()
}

// transition evaluates the phase guards, in flight order, applying at
// most one transition per tick. PhaseLanding is terminal.
func (e *Engine) transition(target *Observation, height float64) {
	switch e.phase {
	case PhaseTakeoff:
		if math.Abs(height-e.targetHeight) <= e.cfg.HeightTolerance {
			e.phase = PhaseAligning
			e.logger.Info("takeoff complete, aligning", slog.Int("targetID", e.tracker.TargetID()))
		}

	case PhaseAligning:
		if target != nil && target.Distance <= e.cfg.Threshold {
			e.phase = PhaseApproaching
			e.logger.Info("aligned, approaching", slog.Int("targetID", e.tracker.TargetID()))
		}

	case PhaseApproaching:
		if target != nil && target.Distance <= e.cfg.Threshold {
			if e.tracker.TargetID() == e.cfg.LandingMarkerID {
				e.phase = PhaseLanding
				e.logger.Info("landing marker reached")
			} else {
				e.tracker.advance()
				e.logger.Info("marker reached",
					slog.Int("reachedID", e.tracker.ReachedID()),
					slog.Int("targetID", e.tracker.TargetID()))
			}
		}

	case PhaseLanding:
		// Terminal.
	}
}

// control computes the command vector for this tick. Vertical control is
// bang-bang around the altitude dead band; horizontal and yaw control
// run only when the target marker is visible, split by phase: aligning
// steers with rotation alone, every other phase translates. A missing
// target leaves the horizontal axes at zero and the vehicle coasts.
func (e *Engine) control(phase Phase, target *Observation, height float64, now time.Time) Command {
	var cmd Command

	switch {
	case height > e.targetHeight+e.cfg.HeightTolerance:
		cmd.UpDown = -e.cfg.DescendRate
	case height < e.targetHeight-e.cfg.HeightTolerance:
		cmd.UpDown = e.cfg.ClimbRate
	}

	if target != nil {
		dx := (target.CenterX - e.cfg.TargetX) / e.cfg.TargetX
		dy := (e.cfg.TargetY - target.CenterY) / e.cfg.TargetY

		// Bearing of the marker relative to straight ahead. Degenerate
		// geometry yields zero rotation rather than an error.
		var rotation float64
		if dx != 0 && dy != 0 {
			rotation = math.Atan(dx/dy) * 180 / math.Pi
		}

		if phase == PhaseAligning {
			cmd.Yaw = int(e.pidYaw.Update(-rotation, now))
		} else {
			cmd.LeftRight = int(e.pidLateral.Update(-dx*100, now))
			cmd.ForwardBackward = int(e.pidLongitudinal.Update(-dy*100, now))
		}
	}

	limit := e.cfg.CommandLimit
	cmd.LeftRight = clamp(cmd.LeftRight, limit)
	cmd.ForwardBackward = clamp(cmd.ForwardBackward, limit)
	cmd.UpDown = clamp(cmd.UpDown, limit)
	cmd.Yaw = clamp(cmd.Yaw, limit)

	return cmd
}

func clamp(v, limit int) int {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
