package aruco

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/roman-kulish/marker-navigation/internal/nav"
	"github.com/roman-kulish/marker-navigation/internal/vision"
)

const (
	Runtime  = "aruco_scan"
	Detector = "aruco"
)

// handler struct represents an ArUco detector handler
type handler struct {
	binPath string
	args    []string

	targetX float64
	targetY float64
}

// New creates a new ArUco detector handler
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

// Cmd returns an exec.Cmd for the ArUco detector handler
func (h handler) Cmd(ctx context.Context) *exec.Cmd {
	return exec.CommandContext(ctx, h.binPath, h.args...)
}

// Parse parses one line of `aruco_scan` output and sends the frame to the
// channel. The format is one CSV line per frame:
//
//	seq,timestamp_ms,id:cx:cy|id:cx:cy|...
//
// The third field is empty when the frame contains no markers. Marker
// distance is measured from the configured image reference point.
func (h handler) Parse(line string, deviceID string, frames chan<- vision.Frame) error {
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return fmt.Errorf("invalid aruco_scan output: expected 3 fields, got %d", len(fields))
	}

	seq, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid frame sequence: %w", err)
	}

	millis, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}

	frame := vision.Frame{
		Seq:       seq,
		Timestamp: time.UnixMilli(millis),
		Detector:  Detector,
		DeviceID:  deviceID,
	}

	if detections := strings.TrimSpace(fields[2]); detections != "" {
		for _, det := range strings.Split(detections, "|") {
			marker, err := h.parseMarker(det)
			if err != nil {
				return err
			}

			frame.Markers = append(frame.Markers, marker)
		}
	}

	frames <- frame
	return nil
}

func (h handler) parseMarker(det string) (nav.Observation, error) {
	parts := strings.Split(det, ":")
	if len(parts) != 3 {
		return nav.Observation{}, fmt.Errorf("invalid detection '%s': expected id:cx:cy", det)
	}

	id, err := strconv.Atoi(parts[0])
	if err != nil || id < 0 {
		return nav.Observation{}, fmt.Errorf("invalid marker id '%s'", parts[0])
	}

	cx, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nav.Observation{}, fmt.Errorf("invalid marker center x: %w", err)
	}

	cy, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return nav.Observation{}, fmt.Errorf("invalid marker center y: %w", err)
	}

	return nav.Observation{
		ID:       id,
		CenterX:  cx,
		CenterY:  cy,
		Distance: math.Hypot(cx-h.targetX, cy-h.targetY),
	}, nil
}

func (h handler) Detector() string {
	return Detector
}
