package telemetry

import (
	"time"
)

type Provider interface {
	Get() *Telemetry
}

// Telemetry is the drone state reported over the flight-controller link.
// Fields are nil when the link has not reported them yet.
type Telemetry struct {
	Timestamp time.Time // Timestamp of the most recent report
	Height    *float64  // Height above the floor in centimeters
	Battery   *int64    // Battery level in percent
	Roll      *float64  // Roll angle in degrees
	Pitch     *float64  // Pitch angle in degrees
	Yaw       *float64  // Yaw angle in degrees
}
