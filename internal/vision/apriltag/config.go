package apriltag

import (
	"fmt"
	"strconv"
)

const (
	// FamilyTag36h11 is the default tag family
	FamilyTag36h11      Family = "tag36h11"
	FamilyTag25h9       Family = "tag25h9"
	FamilyTag16h5       Family = "tag16h5"
	FamilyTagCircle21h7 Family = "tagCircle21h7"
	FamilyTagStandard41 Family = "tagStandard41h12"
)

var validFamilies = map[Family]struct{}{
	FamilyTag36h11:      {},
	FamilyTag25h9:       {},
	FamilyTag16h5:       {},
	FamilyTagCircle21h7: {},
	FamilyTagStandard41: {},
}

type Family string

func (f Family) String() string {
	return string(f)
}

// Config is the `apriltag_scan` tool configuration. The tool opens the
// camera, detects AprilTags frame by frame and writes one JSON object per
// frame on stdout.
type Config struct {
	// Required
	Width  int `yaml:"width" json:"width"`   // -w frame width in pixels
	Height int `yaml:"height" json:"height"` // -h frame height in pixels
	FPS    int `yaml:"fps" json:"fps"`       // -r capture rate, frames per second

	// TargetX and TargetY form the image reference point the marker
	// distance is measured against. The point is used by the Go-side
	// parser, not passed to the tool.
	TargetX float64 `yaml:"targetX" json:"targetX"` // reference point X in pixels
	TargetY float64 `yaml:"targetY" json:"targetY"` // reference point Y in pixels

	// Common Optional Parameters
	CameraIndex int    `yaml:"cameraIndex" json:"cameraIndex"` // -d camera index (default: 0)
	Family      Family `yaml:"family" json:"family"`           // -f tag family (default: tag36h11)

	// Processing Options
	Decimate float64 `yaml:"decimate" json:"decimate"` // -q input decimation factor (default: 1.0)
	Threads  int     `yaml:"threads" json:"threads"`   // -t detector threads
}

func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("apriltag.Config: frame size must be positive: %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("apriltag.Config: capture rate must be positive: %d", c.FPS)
	}
	if c.TargetX <= 0 || c.TargetX >= float64(c.Width) {
		return fmt.Errorf("apriltag.Config: reference point X must be inside the frame: %g", c.TargetX)
	}
	if c.TargetY <= 0 || c.TargetY >= float64(c.Height) {
		return fmt.Errorf("apriltag.Config: reference point Y must be inside the frame: %g", c.TargetY)
	}
	if c.CameraIndex < 0 {
		return fmt.Errorf("apriltag.Config: camera index must not be negative: %d", c.CameraIndex)
	}
	if c.Family != "" {
		if _, ok := validFamilies[c.Family]; !ok {
			return fmt.Errorf("apriltag.Config: invalid tag family: %s", c.Family)
		}
	}
	if c.Decimate < 0 {
		return fmt.Errorf("apriltag.Config: decimation factor must not be negative: %g", c.Decimate)
	}
	if c.Threads < 0 {
		return fmt.Errorf("apriltag.Config: thread count must not be negative: %d", c.Threads)
	}
	return nil
}

// Args returns the command line arguments for `apriltag_scan`
func (c *Config) Args() ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	args := []string{
		"-w", strconv.Itoa(c.Width),
		"-h", strconv.Itoa(c.Height),
		"-r", strconv.Itoa(c.FPS),
	}

	if c.CameraIndex > 0 {
		args = append(args, "-d", strconv.Itoa(c.CameraIndex))
	}
	if c.Family != "" {
		args = append(args, "-f", c.Family.String())
	}
	if c.Decimate > 0 {
		args = append(args, "-q", strconv.FormatFloat(c.Decimate, 'f', -1, 64))
	}
	if c.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(c.Threads))
	}

	return args, nil
}
