package flight

import (
	"time"

	"github.com/roman-kulish/marker-navigation/internal/nav"
	"github.com/roman-kulish/marker-navigation/internal/telemetry"
)

// Session represents a single recorded flight with a specific detector.
// Each session captures metadata about when and how the flight was flown.
type Session struct {
	ID           int64     `json:"id"`                      // Unique identifier for the session
	UUID         string    `json:"uuid"`                    // External session identifier
	StartTime    time.Time `json:"startTime"`               // When the flight began
	DetectorType string    `json:"detectorType"`            // Type of marker detector used (e.g., "aruco", "apriltag")
	DeviceID     string    `json:"deviceID"`                // Configured device name for the detector
	Config       *string   `json:"config,string,omitempty"` // Optional detector configuration in JSON format
}

// Record is the telemetry produced by one control tick: the engine state,
// the resolved target marker when visible, and the command that went to
// the actuator. One record per tick.
type Record struct {
	Timestamp    time.Time   `json:"timestamp"`
	Phase        nav.Phase   `json:"phase"`
	TargetID     int         `json:"targetID"`
	ReachedID    int         `json:"reachedID"`
	MaxID        int         `json:"maxID"`
	Height       float64     `json:"height"`       // Current height in cm
	TargetHeight float64     `json:"targetHeight"` // Altitude setpoint in cm
	MarkerX      *float64    `json:"markerX,omitempty"`
	MarkerY      *float64    `json:"markerY,omitempty"`
	MarkerDist   *float64    `json:"markerDistance,omitempty"`
	Command      nav.Command `json:"command"`
	Battery      *int64      `json:"battery,omitempty"` // Battery percentage, if the link reports it
}

// FromSnapshot converts an engine tick snapshot into a flight record,
// folding in drone telemetry when available.
func FromSnapshot(s nav.Snapshot, t *telemetry.Telemetry) Record {
	r := Record{
		Timestamp:    s.Timestamp,
		Phase:        s.Phase,
		TargetID:     s.TargetID,
		ReachedID:    s.ReachedID,
		MaxID:        s.MaxID,
		Height:       s.Height,
		TargetHeight: s.TargetHeight,
		Command:      s.Command,
	}

	if s.Marker != nil {
		x, y, d := s.Marker.CenterX, s.Marker.CenterY, s.Marker.Distance
		r.MarkerX = &x
		r.MarkerY = &y
		r.MarkerDist = &d
	}

	if t != nil {
		r.Battery = t.Battery
	}

	return r
}
