package nav

import "time"

// Tracker maintains progress through the ordered marker sequence: which
// identity is currently sought, how many markers have been passed, the
// highest identity ever observed, and staleness timers for both. The
// tracker never blocks and has no failure modes; it is a pure state
// update driven by the per-tick observation list.
type Tracker struct {
	targetID  int
	reachedID int
	maxID     int

	lastTargetSeen  time.Time
	lastMaxIDUpdate time.Time

	lostTimeout  time.Duration
	staleTimeout time.Duration
}

// NewTracker creates a tracker pursuing marker identity 1, with both
// staleness timers seeded from now.
func NewTracker(lostTimeout, staleTimeout time.Duration, now time.Time) *Tracker {
	return &Tracker{
		targetID:        1,
		lastTargetSeen:  now,
		lastMaxIDUpdate: now,
		lostTimeout:     lostTimeout,
		staleTimeout:    staleTimeout,
	}
}

// Update folds one frame of observations into the tracker state. The
// highest identity in the frame raises maxID if it exceeds it, and a
// sighting of the current target refreshes the target-seen timer.
func (t *Tracker) Update(observations []Observation, now time.Time) {
	if len(observations) > 0 {
		m := observations[0].ID
		for _, o := range observations[1:] {
			if o.ID > m {
				m = o.ID
			}
		}
		if m > t.maxID {
			t.maxID = m
			t.lastMaxIDUpdate = now
		}
	}

	if t.Target(observations) != nil {
		t.lastTargetSeen = now
	}
}

// Target resolves the current target marker from an observation list, or
// nil when it is not present. The resolution happens once per tick here;
// downstream components receive the resolved observation rather than
// re-deriving it.
func (t *Tracker) Target(observations []Observation) *Observation {
	for i := range observations {
		if observations[i].ID == t.targetID {
			return &observations[i]
		}
	}
	return nil
}

// IsTargetLost reports whether the current target has not been sighted
// for longer than the configured lost timeout.
func (t *Tracker) IsTargetLost(now time.Time) bool {
	return now.Sub(t.lastTargetSeen) > t.lostTimeout
}

// ShouldRefreshMaxID reports whether the "furthest marker seen" estimate
// has gone stale: no observation has raised maxID within the configured
// staleness timeout. The caller decides what recovery, if any, to run.
func (t *Tracker) ShouldRefreshMaxID(now time.Time) bool {
	return now.Sub(t.lastMaxIDUpdate) > t.staleTimeout
}

// TargetID returns the marker identity currently being pursued. It is
// monotonically non-decreasing across a mission.
func (t *Tracker) TargetID() int { return t.targetID }

// ReachedID returns the number of markers successfully passed.
func (t *Tracker) ReachedID() int { return t.reachedID }

// MaxID returns the highest marker identity ever observed.
func (t *Tracker) MaxID() int { return t.maxID }

// advance moves the tracker to the next marker in the sequence. Only the
// phase machine calls this, on a successful approach to a non-landing
// marker.
func (t *Tracker) advance() {
	t.reachedID++
	t.targetID++
}
