package nav

import "time"

// Observation is a single marker detection within one camera frame.
// The vision layer produces a list of these per frame; the engine
// consumes them and discards them at the end of the tick.
type Observation struct {
	ID       int     // Marker identity (non-negative)
	CenterX  float64 // Marker centroid X in pixels
	CenterY  float64 // Marker centroid Y in pixels
	Distance float64 // Pixel distance from the configured image target point
}

// Command is the four-axis actuator instruction produced each tick.
// Every field is independently clamped to the configured command limit.
// Commands carry no state between ticks; the PID loops do.
type Command struct {
	LeftRight       int // Lateral velocity, positive right
	ForwardBackward int // Longitudinal velocity, positive forward
	UpDown          int // Vertical velocity, positive up
	Yaw             int // Rotational velocity, positive clockwise
}

// Snapshot captures the full engine state after one tick. One snapshot
// per tick is handed to the telemetry sink.
type Snapshot struct {
	Timestamp    time.Time
	Phase        Phase
	TargetID     int
	ReachedID    int
	MaxID        int
	Height       float64
	TargetHeight float64
	Marker       *Observation // nil when the target marker was not visible this tick
	Command      Command
}
