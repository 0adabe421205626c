package vision

import (
	"time"

	"github.com/roman-kulish/marker-navigation/internal/nav"
)

// Frame is one camera frame's worth of marker detections, as parsed from
// a detector process. An empty Markers slice is a valid frame: the camera
// saw no markers.
type Frame struct {
	Seq       int64             // Monotonic frame sequence number from the detector
	Timestamp time.Time         // Frame capture time
	Markers   []nav.Observation // Detections within the frame, unordered
	Detector  string            // "aruco" or "apriltag"
	DeviceID  string            // Configured device name
}

// CmdArgsBuilder is an interface for building command line arguments for
// detector tools.
type CmdArgsBuilder interface {
	Args() ([]string, error)
}
