package drone

import (
	"fmt"

	"github.com/roman-kulish/marker-navigation/internal/nav"
)

const (
	// ModeSerial drives a real vehicle over a serial flight-controller link
	ModeSerial = "serial"

	// ModeDryRun rehearses a mission without a vehicle
	ModeDryRun = "dryrun"
)

// Link is the actuator boundary: engine commands go out through it, and
// implementations scale them to hardware units before transmission.
type Link interface {
	// SendControl transmits one four-axis command vector.
	SendControl(cmd nav.Command) error

	// Takeoff starts the flight.
	Takeoff() error

	// Land ends the flight with a controlled descent.
	Land() error

	// Halt zeroes all axes immediately. It is the safe neutral command
	// issued before landing or on shutdown.
	Halt() error

	// Close releases the link. The link cannot be reused afterwards.
	Close() error
}

// Config represents the drone link configuration
type Config struct {
	Mode       string  `yaml:"mode" json:"mode"`             // "serial" or "dryrun"
	Port       string  `yaml:"port" json:"port"`             // Serial port path, e.g. /dev/ttyUSB0
	BaudRate   int     `yaml:"baudRate" json:"baudRate"`     // Serial baud rate
	SpeedScale float64 `yaml:"speedScale" json:"speedScale"` // Factor applied to commands before transmission
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeSerial:
		if c.Port == "" {
			return fmt.Errorf("drone.Config: serial mode requires a port")
		}
		if c.BaudRate <= 0 {
			return fmt.Errorf("drone.Config: baud rate must be positive: %d", c.BaudRate)
		}

	case ModeDryRun:

	default:
		return fmt.Errorf("drone.Config: unknown mode '%s'", c.Mode)
	}

	if c.SpeedScale <= 0 || c.SpeedScale > 1 {
		return fmt.Errorf("drone.Config: speed scale must be in (0, 1]: %g", c.SpeedScale)
	}

	return nil
}
