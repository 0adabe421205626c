package app

import (
	"math"
	"time"

	"github.com/roman-kulish/marker-navigation/internal/flight"
)

const defaultCommandLimit = 100

// FlightData accumulates the per-tick records of one session into the
// series the renderer draws. One record is one pixel column.
type FlightData struct {
	Records []flight.Record

	TimestampStart, TimestampEnd time.Time

	HeightMin, HeightMax float64
	DistanceMax          float64
	CommandLimit         int
}

func NewFlightData() *FlightData {
	return &FlightData{
		HeightMin:    math.MaxFloat64,
		CommandLimit: defaultCommandLimit,
	}
}

// Update folds one record into the accumulated series.
func (d *FlightData) Update(r *flight.Record) {
	if d.TimestampStart.IsZero() || d.TimestampStart.After(r.Timestamp) {
		d.TimestampStart = r.Timestamp
	}
	if d.TimestampEnd.IsZero() || d.TimestampEnd.Before(r.Timestamp) {
		d.TimestampEnd = r.Timestamp
	}

	d.HeightMin = min(d.HeightMin, r.Height, r.TargetHeight)
	d.HeightMax = max(d.HeightMax, r.Height, r.TargetHeight)

	if r.MarkerDist != nil {
		d.DistanceMax = max(d.DistanceMax, *r.MarkerDist)
	}

	// Commands beyond the default limit stretch the color scale instead
	// of clipping.
	for _, v := range []int{r.Command.LeftRight, r.Command.ForwardBackward, r.Command.UpDown, r.Command.Yaw} {
		if abs(v) > d.CommandLimit {
			d.CommandLimit = abs(v)
		}
	}

	d.Records = append(d.Records, *r)
}

// Width is the number of pixel columns, one per record.
func (d *FlightData) Width() int {
	return len(d.Records)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
