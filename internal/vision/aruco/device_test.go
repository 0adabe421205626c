package aruco

import (
	"math"
	"testing"

	"github.com/roman-kulish/marker-navigation/internal/vision"
)

func testHandler() handler {
	return handler{targetX: 160, targetY: 192}
}

func TestHandler_Parse(t *testing.T) {
	h := testHandler()
	frames := make(chan vision.Frame, 1)

	if err := h.Parse("42,1700000000000,1:200:100|3:160:192", "cam0", frames); err != nil {
		t.Fatalf("Failed to parse line: %v", err)
	}

	frame := <-frames
	if frame.Seq != 42 {
		t.Errorf("Expected seq 42, got %d", frame.Seq)
	}
	if frame.Timestamp.UnixMilli() != 1700000000000 {
		t.Errorf("Unexpected timestamp: %s", frame.Timestamp)
	}
	if frame.Detector != Detector || frame.DeviceID != "cam0" {
		t.Errorf("Unexpected frame metadata: %s/%s", frame.Detector, frame.DeviceID)
	}
	if len(frame.Markers) != 2 {
		t.Fatalf("Expected 2 markers, got %d", len(frame.Markers))
	}

	m := frame.Markers[0]
	if m.ID != 1 || m.CenterX != 200 || m.CenterY != 100 {
		t.Errorf("Unexpected first marker: %+v", m)
	}

	wantDist := math.Hypot(200-160, 100-192)
	if math.Abs(m.Distance-wantDist) > 1e-9 {
		t.Errorf("Expected distance %g, got %g", wantDist, m.Distance)
	}

	// A marker dead on the reference point has zero distance.
	if d := frame.Markers[1].Distance; d != 0 {
		t.Errorf("Expected zero distance for marker on reference point, got %g", d)
	}
}

func TestHandler_ParseEmptyFrame(t *testing.T) {
	h := testHandler()
	frames := make(chan vision.Frame, 1)

	if err := h.Parse("7,1700000000083,", "cam0", frames); err != nil {
		t.Fatalf("Failed to parse empty frame: %v", err)
	}

	frame := <-frames
	if frame.Seq != 7 {
		t.Errorf("Expected seq 7, got %d", frame.Seq)
	}
	if len(frame.Markers) != 0 {
		t.Errorf("Expected no markers, got %d", len(frame.Markers))
	}
}

func TestHandler_ParseErrors(t *testing.T) {
	h := testHandler()
	frames := make(chan vision.Frame, 1)

	cases := []struct {
		name string
		line string
	}{
		{"not enough fields", "42,1700000000000"},
		{"too many fields", "42,1700000000000,1:2:3,extra"},
		{"bad sequence", "abc,1700000000000,"},
		{"bad timestamp", "42,later,"},
		{"malformed detection", "42,1700000000000,1:200"},
		{"negative marker id", "42,1700000000000,-1:200:100"},
		{"bad center", "42,1700000000000,1:left:100"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := h.Parse(tc.line, "cam0", frames); err == nil {
				t.Errorf("Expected parse error for line %q", tc.line)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Width: 320, Height: 240, FPS: 12, TargetX: 160, TargetY: 192}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected valid config, got: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"zero fps", func(c *Config) { c.FPS = 0 }},
		{"reference point outside frame", func(c *Config) { c.TargetX = 400 }},
		{"reference point on edge", func(c *Config) { c.TargetY = 240 }},
		{"negative camera index", func(c *Config) { c.CameraIndex = -1 }},
		{"unknown dictionary", func(c *Config) { c.Dictionary = "9x9_13" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := valid
			tc.mutate(&config)
			if err := config.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestConfig_Args(t *testing.T) {
	config := Config{
		Width:       320,
		Height:      240,
		FPS:         12,
		TargetX:     160,
		TargetY:     192,
		CameraIndex: 1,
		Dictionary:  Dictionary4x4_250,
	}

	args, err := config.Args()
	if err != nil {
		t.Fatalf("Failed to build args: %v", err)
	}

	want := []string{"-w", "320", "-h", "240", "-r", "12", "-d", "1", "-D", "4x4_250"}
	if len(args) != len(want) {
		t.Fatalf("Expected %d args, got %d: %v", len(want), len(args), args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("Arg %d: expected %q, got %q", i, want[i], args[i])
		}
	}
}
