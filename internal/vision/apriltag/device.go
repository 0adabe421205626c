package apriltag

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"time"

	"github.com/roman-kulish/marker-navigation/internal/nav"
	"github.com/roman-kulish/marker-navigation/internal/vision"
)

const (
	Runtime  = "apriltag_scan"
	Detector = "apriltag"
)

// frameLine mirrors one line of `apriltag_scan` JSON output
type frameLine struct {
	Seq        int64 `json:"seq"`
	TimeMillis int64 `json:"ts"`
	Detections []struct {
		ID      int     `json:"id"`
		CenterX float64 `json:"cx"`
		CenterY float64 `json:"cy"`
	} `json:"detections"`
}

// handler struct represents an AprilTag detector handler
type handler struct {
	binPath string
	args    []string

	targetX float64
	targetY float64
}

// New creates a new AprilTag detector handler
func New(config *Config) (vision.Handler, error) {
	binPath, err := vision.FindRuntime(Runtime)
	if err != nil {
		return nil, fmt.Errorf("error finding runtime: %w", err)
	}

	args, err := config.Args()
	if err != nil {
		return nil, fmt.Errorf("error creating args: %w", err)
	}

	return &handler{binPath, args, config.TargetX, config.TargetY}, nil
}

// Cmd returns an exec.Cmd for the AprilTag detector handler
func (h handler) Cmd(ctx context.Context) *exec.Cmd {
	return exec.CommandContext(ctx, h.binPath, h.args...)
}

// Parse parses one JSON line of `apriltag_scan` output and sends the
// frame to the channel. Marker distance is measured from the configured
// image reference point.
func (h handler) Parse(line string, deviceID string, frames chan<- vision.Frame) error {
	var fl frameLine
	if err := json.Unmarshal([]byte(line), &fl); err != nil {
		return fmt.Errorf("invalid apriltag_scan output: %w", err)
	}
	if fl.TimeMillis <= 0 {
		return fmt.Errorf("invalid apriltag_scan output: missing timestamp")
	}

	frame := vision.Frame{
		Seq:       fl.Seq,
		Timestamp: time.UnixMilli(fl.TimeMillis),
		Detector:  Detector,
		DeviceID:  deviceID,
	}

	for _, det := range fl.Detections {
		if det.ID < 0 {
			return fmt.Errorf("invalid marker id %d", det.ID)
		}

		frame.Markers = append(frame.Markers, nav.Observation{
			ID:       det.ID,
			CenterX:  det.CenterX,
			CenterY:  det.CenterY,
			Distance: math.Hypot(det.CenterX-h.targetX, det.CenterY-h.targetY),
		})
	}

	frames <- frame
	return nil
}

func (h handler) Detector() string {
	return Detector
}
