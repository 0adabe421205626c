package app

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/marker-navigation/internal/nav"
)

// FlightStats summarises one recorded flight.
type FlightStats struct {
	Ticks    int
	Duration time.Duration

	// MarkersReached is the number of sequence markers confirmed reached.
	MarkersReached int

	// AvgHeightError is the mean absolute deviation from the altitude
	// setpoint in centimetres.
	AvgHeightError float64

	// AvgMarkerDistance is the mean distance to the image reference point
	// over the ticks a marker was visible, in pixels.
	AvgMarkerDistance float64

	// MaxCommand holds the peak absolute command per axis.
	MaxLateral      int
	MaxLongitudinal int
	MaxVertical     int
	MaxYaw          int

	// PhaseDurations is the wall time spent in each phase.
	PhaseDurations map[nav.Phase]time.Duration

	// BatteryUsed is the battery percentage drop over the flight, when
	// the link reported battery state.
	BatteryUsed *int64
}

// ComputeStats derives the flight summary from accumulated records.
// Records must be in timestamp order, the order the reader yields them.
func ComputeStats(d *FlightData) *FlightStats {
	stats := FlightStats{
		Ticks:          len(d.Records),
		PhaseDurations: make(map[nav.Phase]time.Duration),
	}
	if len(d.Records) == 0 {
		return &stats
	}

	stats.Duration = d.TimestampEnd.Sub(d.TimestampStart)

	var heightErrSum float64
	var distanceSum float64
	var distanceCount int
	var firstBattery, lastBattery *int64

	for i, r := range d.Records {
		stats.MarkersReached = max(stats.MarkersReached, r.ReachedID)

		heightErrSum += math.Abs(r.Height - r.TargetHeight)

		if r.MarkerDist != nil {
			distanceSum += *r.MarkerDist
			distanceCount++
		}

		stats.MaxLateral = max(stats.MaxLateral, abs(r.Command.LeftRight))
		stats.MaxLongitudinal = max(stats.MaxLongitudinal, abs(r.Command.ForwardBackward))
		stats.MaxVertical = max(stats.MaxVertical, abs(r.Command.UpDown))
		stats.MaxYaw = max(stats.MaxYaw, abs(r.Command.Yaw))

		if i+1 < len(d.Records) {
			stats.PhaseDurations[r.Phase] += d.Records[i+1].Timestamp.Sub(r.Timestamp)
		}

		if r.Battery != nil {
			if firstBattery == nil {
				firstBattery = r.Battery
			}
			lastBattery = r.Battery
		}
	}

	stats.AvgHeightError = heightErrSum / float64(len(d.Records))
	if distanceCount > 0 {
		stats.AvgMarkerDistance = distanceSum / float64(distanceCount)
	}

	if firstBattery != nil && lastBattery != nil {
		used := *firstBattery - *lastBattery
		stats.BatteryUsed = &used
	}

	return &stats
}

// Summary renders the stats as a single info bar line.
func (s *FlightStats) Summary() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Ticks: %s", humanize.Comma(int64(s.Ticks))))
	sb.WriteString(fmt.Sprintf("; Duration: %s", s.Duration.Round(time.Second)))
	sb.WriteString(fmt.Sprintf("; Markers reached: %d", s.MarkersReached))
	sb.WriteString(fmt.Sprintf("; Avg height error: %.1f cm", s.AvgHeightError))
	sb.WriteString(fmt.Sprintf("; Avg marker distance: %.1f px", s.AvgMarkerDistance))

	if s.BatteryUsed != nil {
		sb.WriteString(fmt.Sprintf("; Battery used: %d%%", *s.BatteryUsed))
	}

	return sb.String()
}
