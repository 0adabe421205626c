package drone

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roman-kulish/marker-navigation/internal/nav"
	"github.com/roman-kulish/marker-navigation/internal/telemetry"
)

// WithDryRunLogger sets the logger for the dry-run link.
func WithDryRunLogger(logger *slog.Logger) func(l *DryRunLink) {
	return func(l *DryRunLink) {
		l.logger = logger.With(slog.String("component", "drone"), slog.String("mode", ModeDryRun))
	}
}

// DryRunLink rehearses a mission without a vehicle: commands go to the
// log, and the reported height simply follows the altitude setpoint so
// the engine behaves as if altitude tracking were perfect.
type DryRunLink struct {
	mu     sync.RWMutex
	height float64

	logger *slog.Logger
}

// NewDryRunLink creates a dry-run link reporting the given height.
func NewDryRunLink(height float64, options ...func(l *DryRunLink)) *DryRunLink {
	l := DryRunLink{
		height: height,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&l)
	}

	return &l
}

// SetHeight moves the simulated height, typically after an operator
// altitude retarget.
func (l *DryRunLink) SetHeight(cm float64) {
	l.mu.Lock()
	l.height = cm
	l.mu.Unlock()
}

func (l *DryRunLink) SendControl(cmd nav.Command) error {
	l.logger.Debug("rc control",
		slog.Int("leftRight", cmd.LeftRight),
		slog.Int("forwardBackward", cmd.ForwardBackward),
		slog.Int("upDown", cmd.UpDown),
		slog.Int("yaw", cmd.Yaw))
	return nil
}

func (l *DryRunLink) Takeoff() error {
	l.logger.Info("takeoff")
	return nil
}

func (l *DryRunLink) Land() error {
	l.logger.Info("land")
	return nil
}

func (l *DryRunLink) Halt() error {
	l.logger.Info("halt")
	return nil
}

func (l *DryRunLink) Close() error {
	return nil
}

func (l *DryRunLink) Get() *telemetry.Telemetry {
	l.mu.RLock()
	height := l.height
	l.mu.RUnlock()

	battery := int64(100)
	return &telemetry.Telemetry{
		Timestamp: time.Now(),
		Height:    &height,
		Battery:   &battery,
	}
}
