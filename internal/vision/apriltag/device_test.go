package apriltag

import (
	"math"
	"testing"

	"github.com/roman-kulish/marker-navigation/internal/vision"
)

func TestHandler_Parse(t *testing.T) {
	h := handler{targetX: 160, targetY: 192}
	frames := make(chan vision.Frame, 1)

	line := `{"seq":12,"ts":1700000000000,"detections":[{"id":2,"cx":100,"cy":192}]}`
	if err := h.Parse(line, "cam0", frames); err != nil {
		t.Fatalf("Failed to parse line: %v", err)
	}

	frame := <-frames
	if frame.Seq != 12 || frame.Detector != Detector {
		t.Errorf("Unexpected frame metadata: seq=%d detector=%s", frame.Seq, frame.Detector)
	}
	if len(frame.Markers) != 1 {
		t.Fatalf("Expected 1 marker, got %d", len(frame.Markers))
	}

	m := frame.Markers[0]
	if m.ID != 2 || m.CenterX != 100 || m.CenterY != 192 {
		t.Errorf("Unexpected marker: %+v", m)
	}
	if math.Abs(m.Distance-60) > 1e-9 {
		t.Errorf("Expected distance 60, got %g", m.Distance)
	}
}

func TestHandler_ParseErrors(t *testing.T) {
	h := handler{targetX: 160, targetY: 192}
	frames := make(chan vision.Frame, 1)

	cases := []struct {
		name string
		line string
	}{
		{"not json", "42,1700000000000,"},
		{"missing timestamp", `{"seq":1,"detections":[]}`},
		{"negative marker id", `{"seq":1,"ts":1700000000000,"detections":[{"id":-3,"cx":1,"cy":1}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := h.Parse(tc.line, "cam0", frames); err == nil {
				t.Errorf("Expected parse error for line %q", tc.line)
			}
		})
	}
}

func TestConfig_Args(t *testing.T) {
	config := Config{
		Width:    640,
		Height:   480,
		FPS:      30,
		TargetX:  320,
		TargetY:  384,
		Family:   FamilyTag36h11,
		Decimate: 2,
		Threads:  2,
	}

	args, err := config.Args()
	if err != nil {
		t.Fatalf("Failed to build args: %v", err)
	}

	want := []string{"-w", "640", "-h", "480", "-r", "30", "-f", "tag36h11", "-q", "2", "-t", "2"}
	if len(args) != len(want) {
		t.Fatalf("Expected %d args, got %d: %v", len(want), len(args), args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("Arg %d: expected %q, got %q", i, want[i], args[i])
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Width: 640, Height: 480, FPS: 30, TargetX: 320, TargetY: 384}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected valid config, got: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero height", func(c *Config) { c.Height = 0 }},
		{"reference point outside frame", func(c *Config) { c.TargetY = 480 }},
		{"unknown family", func(c *Config) { c.Family = "tag99h1" }},
		{"negative decimation", func(c *Config) { c.Decimate = -1 }},
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
