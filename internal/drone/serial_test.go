package drone

import (
	"strings"
	"testing"
	"time"

	"github.com/roman-kulish/marker-navigation/internal/nav"
)

// fakePort captures writes and serves reads from a preloaded script.
type fakePort struct {
	reader *strings.Reader
	writes []string
	closed bool
}

func newFakePort(script string) *fakePort {
	return &fakePort{reader: strings.NewReader(script)}
}

func (p *fakePort) Read(b []byte) (int, error) {
	return p.reader.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.writes = append(p.writes, string(b))
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestSerialLink_SendControlScales(t *testing.T) {
	port := newFakePort("")
	l := newSerialLink(port, 0.4)

	err := l.SendControl(nav.Command{LeftRight: 100, ForwardBackward: -50, UpDown: 20, Yaw: -100})
	if err != nil {
		t.Fatalf("Failed to send control: %v", err)
	}

	if len(port.writes) != 1 {
		t.Fatalf("Expected 1 write, got %d", len(port.writes))
	}
	if got, want := port.writes[0], "rc 40 -20 8 -40\n"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestSerialLink_FlightCommands(t *testing.T) {
	port := newFakePort("")
	l := newSerialLink(port, 1)

	ops := []struct {
		fn   func() error
		want string
	}{
		{l.Takeoff, "takeoff\n"},
		{l.Land, "land\n"},
		{l.Halt, "rc 0 0 0 0\n"},
	}

	for i, op := range ops {
		if err := op.fn(); err != nil {
			t.Fatalf("Command %d failed: %v", i, err)
		}
		if got := port.writes[i]; got != op.want {
			t.Errorf("Command %d: expected %q, got %q", i, op.want, got)
		}
	}
}

func TestSerialLink_ParseReports(t *testing.T) {
	l := newSerialLink(newFakePort(""), 1)
	now := time.Now()

	for _, line := range []string{"h 145", "bat 87", "att 1.5 -0.5 92"} {
		if err := l.parseReport(line, now); err != nil {
			t.Fatalf("Failed to parse %q: %v", line, err)
		}
	}

	state := l.Get()
	if state.Height == nil || *state.Height != 145 {
		t.Errorf("Unexpected height: %v", state.Height)
	}
	if state.Battery == nil || *state.Battery != 87 {
		t.Errorf("Unexpected battery: %v", state.Battery)
	}
	if state.Roll == nil || *state.Roll != 1.5 {
		t.Errorf("Unexpected roll: %v", state.Roll)
	}
	if state.Yaw == nil || *state.Yaw != 92 {
		t.Errorf("Unexpected yaw: %v", state.Yaw)
	}

	// Unknown report types are skipped, not errors.
	if err := l.parseReport("tof 37", now); err != nil {
		t.Errorf("Unknown report type raised: %v", err)
	}

	// Malformed known reports are errors.
	for _, line := range []string{"h", "h high", "bat full", "att 1 2"} {
		if err := l.parseReport(line, now); err == nil {
			t.Errorf("Expected parse error for %q", line)
		}
	}
}

func TestSerialLink_GetReturnsCopy(t *testing.T) {
	l := newSerialLink(newFakePort(""), 1)

	if err := l.parseReport("h 150", time.Now()); err != nil {
		t.Fatalf("Failed to parse report: %v", err)
	}

	first := l.Get()
	*first.Height = 999

	if second := l.Get(); second.Height == first.Height {
		t.Error("Get returned shared state across calls")
	}
}
