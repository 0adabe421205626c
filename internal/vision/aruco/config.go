package aruco

import (
	"fmt"
	"strconv"
)

const (
	// Dictionary4x4_50 is the default marker dictionary
	Dictionary4x4_50   Dictionary = "4x4_50"
	Dictionary4x4_100  Dictionary = "4x4_100"
	Dictionary4x4_250  Dictionary = "4x4_250"
	Dictionary4x4_1000 Dictionary = "4x4_1000"
	Dictionary5x5_250  Dictionary = "5x5_250"
	Dictionary6x6_250  Dictionary = "6x6_250"
	DictionaryOriginal Dictionary = "original"
)

var validDictionaries = map[Dictionary]struct{}{
	Dictionary4x4_50:   {},
	Dictionary4x4_100:  {},
	Dictionary4x4_250:  {},
	Dictionary4x4_1000: {},
	Dictionary5x5_250:  {},
	Dictionary6x6_250:  {},
	DictionaryOriginal: {},
}

type Dictionary string

func (d Dictionary) String() string {
	return string(d)
}

// Config is the `aruco_scan` tool configuration. The tool opens the
// camera, detects ArUco markers frame by frame and writes one CSV line
// per frame on stdout.
type Config struct {
	// Required
	Width  int `yaml:"width" json:"width"`   // -w frame width in pixels
	Height int `yaml:"height" json:"height"` // -h frame height in pixels
	FPS    int `yaml:"fps" json:"fps"`       // -r capture rate, frames per second

	// TargetX and TargetY form the image reference point the marker
	// distance is measured against. The point is used by the Go-side
	// parser, not passed to the tool; the navigation engine must be
	// configured with the same point.
	TargetX float64 `yaml:"targetX" json:"targetX"` // reference point X in pixels
	TargetY float64 `yaml:"targetY" json:"targetY"` // reference point Y in pixels

	// Common Optional Parameters
	CameraIndex int        `yaml:"cameraIndex" json:"cameraIndex"` // -d camera index (default: 0)
	Dictionary  Dictionary `yaml:"dictionary" json:"dictionary"`   // -D marker dictionary (default: 4x4_50)
}

func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("aruco.Config: frame size must be positive: %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("aruco.Config: capture rate must be positive: %d", c.FPS)
	}
	if c.TargetX <= 0 || c.TargetX >= float64(c.Width) {
		return fmt.Errorf("aruco.Config: reference point X must be inside the frame: %g", c.TargetX)
	}
	if c.TargetY <= 0 || c.TargetY >= float64(c.Height) {
		return fmt.Errorf("aruco.Config: reference point Y must be inside the frame: %g", c.TargetY)
	}
	if c.CameraIndex < 0 {
		return fmt.Errorf("aruco.Config: camera index must not be negative: %d", c.CameraIndex)
	}
	if c.Dictionary != "" {
		if _, ok := validDictionaries[c.Dictionary]; !ok {
			return fmt.Errorf("aruco.Config: invalid dictionary: %s", c.Dictionary)
		}
	}
	return nil
}

// Args returns the command line arguments for `aruco_scan`
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
	if c.Dictionary != "" {
		args = append(args, "-D", c.Dictionary.String())
	}

	return args, nil
}
