package nav

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Lateral:           Gains{Kp: 1.5, Ki: 0.1, Kd: 0.15},
		Longitudinal:      Gains{Kp: 1.0, Ki: 0.1, Kd: 0.15},
		Yaw:               Gains{Kp: 0.8},
		Threshold:         25,
		TargetX:           160,
		TargetY:           192,
		TargetHeight:      150,
		HeightTolerance:   4,
		ClimbRate:         20,
		DescendRate:       20,
		CommandLimit:      100,
		LandingMarkerID:   0,
		TargetLostTimeout: 3 * time.Second,
		MaxIDStaleTimeout: 5 * time.Second,
	}
}

func newTestEngine(t *testing.T, cfg Config, now time.Time) *Engine {
	t.Helper()

	e, err := New(cfg, now)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return e
}

func TestEngine_ConfigValidation(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"negative gain", func(c *Config) { c.Lateral.Kp = -1 }},
		{"zero threshold", func(c *Config) { c.Threshold = 0 }},
		{"zero target point", func(c *Config) { c.TargetX = 0 }},
		{"zero target height", func(c *Config) { c.TargetHeight = 0 }},
		{"negative tolerance", func(c *Config) { c.HeightTolerance = -1 }},
		{"zero climb rate", func(c *Config) { c.ClimbRate = 0 }},
		{"non-positive clamp", func(c *Config) { c.CommandLimit = 0 }},
		{"climb rate above clamp", func(c *Config) { c.ClimbRate = 200 }},
		{"negative landing id", func(c *Config) { c.LandingMarkerID = -1 }},
		{"zero lost timeout", func(c *Config) { c.TargetLostTimeout = 0 }},
		{"zero staleness timeout", func(c *Config) { c.MaxIDStaleTimeout = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if _, err := New(cfg, now); err == nil {
				t.Error("Expected construction to fail")
			}
		})
	}
}

func TestEngine_TakeoffGatesOnAltitude(t *testing.T) {
	now := time.Now()
	e := newTestEngine(t, testConfig(), now)

	// Below the altitude band: stay in takeoff and climb.
	snap := e.Tick(nil, 100, now)
	if snap.Phase != PhaseTakeoff {
		t.Fatalf("Expected takeoff phase, got %s", snap.Phase)
	}
	if snap.Command.UpDown != 20 {
		t.Errorf("Expected climb command 20, got %d", snap.Command.UpDown)
	}

	// Above the band: stay in takeoff and descend.
	snap = e.Tick(nil, 200, now.Add(time.Second))
	if snap.Phase != PhaseTakeoff {
		t.Fatalf("Expected takeoff phase, got %s", snap.Phase)
	}
	if snap.Command.UpDown != -20 {
		t.Errorf("Expected descend command -20, got %d", snap.Command.UpDown)
	}

	// At the edge of the band: transition to aligning.
	snap = e.Tick(nil, 154, now.Add(2*time.Second))
	if snap.Phase != PhaseAligning {
		t.Fatalf("Expected aligning phase at tolerance edge, got %s", snap.Phase)
	}

	// The gate never regresses, even if altitude drifts out again.
	snap = e.Tick(nil, 100, now.Add(3*time.Second))
	if snap.Phase != PhaseAligning {
		t.Errorf("Phase regressed to %s after altitude drift", snap.Phase)
	}
}

// driveToAligning ticks the engine once at the target height so it leaves
// the takeoff phase.
func driveToAligning(t *testing.T, e *Engine, now time.Time) {
	t.Helper()

	if snap := e.Tick(nil, 150, now); snap.Phase != PhaseAligning {
		t.Fatalf("Expected aligning phase, got %s", snap.Phase)
	}
}

func TestEngine_AligningRequiresTargetWithinThreshold(t *testing.T) {
	now := time.Now()
	e := newTestEngine(t, testConfig(), now)
	driveToAligning(t, e, now)

	// Other identities within threshold must not complete alignment.
	snap := e.Tick([]Observation{{ID: 2, CenterX: 160, CenterY: 190, Distance: 3}}, 150, now.Add(time.Second))
	if snap.Phase != PhaseAligning {
		t.Fatalf("Non-target marker completed alignment: phase %s", snap.Phase)
	}

	// The target beyond threshold must not either.
	snap = e.Tick([]Observation{{ID: 1, CenterX: 40, CenterY: 60, Distance: 170}}, 150, now.Add(2*time.Second))
	if snap.Phase != PhaseAligning {
		t.Fatalf("Distant target completed alignment: phase %s", snap.Phase)
	}

	// The target within threshold completes it.
	snap = e.Tick([]Observation{{ID: 1, CenterX: 170, CenterY: 180, Distance: 5}}, 150, now.Add(3*time.Second))
	if snap.Phase != PhaseApproaching {
		t.Fatalf("Expected approaching phase, got %s", snap.Phase)
	}
}

func TestEngine_AligningSteersWithYawOnly(t *testing.T) {
	now := time.Now()
	e := newTestEngine(t, testConfig(), now)
	driveToAligning(t, e, now)

	// The tick that completes alignment still steers with the aligning
	// control mode: rotation only, no translation.
	snap := e.Tick([]Observation{{ID: 1, CenterX: 200, CenterY: 100, Distance: 5}}, 150, now.Add(time.Second))
	if snap.Phase != PhaseApproaching {
		t.Fatalf("Expected approaching phase, got %s", snap.Phase)
	}
	if snap.Command.Yaw == 0 {
		t.Error("Expected a yaw correction for an off-axis marker")
	}
	if snap.Command.LeftRight != 0 || snap.Command.ForwardBackward != 0 {
		t.Errorf("Expected no translation while aligning, got lr=%d fb=%d",
			snap.Command.LeftRight, snap.Command.ForwardBackward)
	}
}

// driveToApproaching brings a fresh engine into the approaching phase
// pursuing marker 1.
func driveToApproaching(t *testing.T, e *Engine, now time.Time) time.Time {
	t.Helper()

	driveToAligning(t, e, now)
	now = now.Add(time.Second)
	if snap := e.Tick([]Observation{{ID: 1, CenterX: 160, CenterY: 190, Distance: 3}}, 150, now); snap.Phase != PhaseApproaching {
		t.Fatalf("Expected approaching phase, got %s", snap.Phase)
	}
	return now
}

func TestEngine_ApproachAdvancesSequence(t *testing.T) {
	now := time.Now()
	e := newTestEngine(t, testConfig(), now)
	now = driveToApproaching(t, e, now)

	snap := e.Tick([]Observation{{ID: 1, CenterX: 158, CenterY: 193, Distance: 2}}, 150, now.Add(time.Second))
	if snap.Phase != PhaseApproaching {
		t.Fatalf("Expected to remain approaching, got %s", snap.Phase)
	}
	if snap.ReachedID != 1 || snap.TargetID != 2 {
		t.Errorf("Expected reached=1 target=2 after passing marker 1, got reached=%d target=%d",
			snap.ReachedID, snap.TargetID)
	}

	// Marker 1 is no longer the target; seeing it again changes nothing.
	snap = e.Tick([]Observation{{ID: 1, CenterX: 158, CenterY: 193, Distance: 2}}, 150, now.Add(2*time.Second))
	if snap.ReachedID != 1 || snap.TargetID != 2 {
		t.Errorf("Passed marker advanced the sequence again: reached=%d target=%d",
			snap.ReachedID, snap.TargetID)
	}
}

func TestEngine_LandingMarkerIsTerminal(t *testing.T) {
	now := time.Now()

	// Reserve identity 1 for landing so the initial target is the pad.
	cfg := testConfig()
	cfg.LandingMarkerID = 1

	e := newTestEngine(t, cfg, now)
	now = driveToApproaching(t, e, now)

	snap := e.Tick([]Observation{{ID: 1, CenterX: 160, CenterY: 190, Distance: 3}}, 150, now.Add(time.Second))
	if snap.Phase != PhaseLanding {
		t.Fatalf("Expected landing phase, got %s", snap.Phase)
	}

	// The reserved identity is not counted as a passed marker.
	if snap.ReachedID != 0 || snap.TargetID != 1 {
		t.Errorf("Landing marker advanced the sequence: reached=%d target=%d", snap.ReachedID, snap.TargetID)
	}

	// Terminal: no input moves the machine out of landing.
	snap = e.Tick([]Observation{{ID: 1, Distance: 1}, {ID: 2, Distance: 1}}, 30, now.Add(2*time.Second))
	if snap.Phase != PhaseLanding {
		t.Errorf("Phase left landing: %s", snap.Phase)
	}
}

func TestEngine_CoastsWithoutTarget(t *testing.T) {
	now := time.Now()
	e := newTestEngine(t, testConfig(), now)
	now = driveToApproaching(t, e, now)

	snap := e.Tick(nil, 150, now.Add(time.Second))
	if snap.Phase != PhaseApproaching {
		t.Errorf("Phase changed without a target: %s", snap.Phase)
	}
	if snap.Command != (Command{}) {
		t.Errorf("Expected zero command while coasting, got %+v", snap.Command)
	}
	if snap.Marker != nil {
		t.Errorf("Expected no resolved marker, got %+v", snap.Marker)
	}
}

func TestEngine_CommandsAlwaysClamped(t *testing.T) {
	now := time.Now()

	cfg := testConfig()
	cfg.Lateral = Gains{Kp: 500}
	cfg.Longitudinal = Gains{Kp: 500}
	cfg.Yaw = Gains{Kp: 500}

	e := newTestEngine(t, cfg, now)
	now = driveToApproaching(t, e, now)

	// A marker far off-centre with absurd gains must still produce a
	// bounded command on every axis.
	for i := 1; i <= 5; i++ {
		tick := now.Add(time.Duration(i) * time.Second)
		snap := e.Tick([]Observation{{ID: 1, CenterX: 320, CenterY: 0, Distance: 230}}, 400, tick)

		for axis, v := range map[string]int{
			"leftRight":       snap.Command.LeftRight,
			"forwardBackward": snap.Command.ForwardBackward,
			"upDown":          snap.Command.UpDown,
			"yaw":             snap.Command.Yaw,
		} {
			if v < -100 || v > 100 {
				t.Errorf("Tick %d: %s command %d outside [-100, 100]", i, axis, v)
			}
		}
	}
}

func TestEngine_SetTargetHeight(t *testing.T) {
	now := time.Now()
	e := newTestEngine(t, testConfig(), now)

	e.SetTargetHeight(200)

	snap := e.Tick(nil, 150, now)
	if snap.Phase != PhaseTakeoff {
		t.Fatalf("Expected takeoff phase against the new setpoint, got %s", snap.Phase)
	}
	if snap.Command.UpDown != 20 {
		t.Errorf("Expected climb toward the new setpoint, got %d", snap.Command.UpDown)
	}
	if snap.TargetHeight != 200 {
		t.Errorf("Snapshot target height = %g, expected 200", snap.TargetHeight)
	}
}

func TestEngine_DegenerateBearingIsZero(t *testing.T) {
	now := time.Now()
	e := newTestEngine(t, testConfig(), now)
	driveToAligning(t, e, now)

	// Marker dead ahead horizontally: dx is zero, bearing degrades to
	// zero instead of erroring.
	snap := e.Tick([]Observation{{ID: 1, CenterX: 160, CenterY: 100, Distance: 92}}, 150, now.Add(time.Second))
	if snap.Command.Yaw != 0 {
		t.Errorf("Expected zero yaw for dead-ahead marker, got %d", snap.Command.Yaw)
	}

	// Marker exactly on the reference row: dy is zero, same degradation.
	snap = e.Tick([]Observation{{ID: 1, CenterX: 100, CenterY: 192, Distance: 60}}, 150, now.Add(2*time.Second))
	if snap.Command.Yaw != 0 {
		t.Errorf("Expected zero yaw for on-row marker, got %d", snap.Command.Yaw)
	}
}

func TestPhase_String(t *testing.T) {
	for phase, want := range map[Phase]string{
		PhaseTakeoff:     "takeoff",
		PhaseAligning:    "aligning",
		PhaseApproaching: "approaching",
		PhaseLanding:     "landing",
		Phase(42):        "unknown",
	} {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, expected %q", int(phase), got, want)
		}
	}
}
