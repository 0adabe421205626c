package drone

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/roman-kulish/marker-navigation/internal/nav"
	"github.com/roman-kulish/marker-navigation/internal/telemetry"
)

// WithSerialLogger sets the logger for the serial link.
func WithSerialLogger(logger *slog.Logger) func(l *SerialLink) {
	return func(l *SerialLink) {
		l.logger = logger.With(slog.String("component", "drone"))
	}
}

// SerialLink talks to the flight controller over a serial port. Commands
// go out as short text lines; the controller streams state reports back
// (height, battery, attitude) which the link parses into a telemetry
// snapshot. SerialLink implements both Link and telemetry.Provider.
type SerialLink struct {
	port  io.ReadWriteCloser
	scale float64

	writeMu sync.Mutex

	mu    sync.RWMutex
	state telemetry.Telemetry

	logger *slog.Logger
}

// OpenSerial opens the configured serial port and wraps it in a link.
func OpenSerial(config *Config, options ...func(l *SerialLink)) (*SerialLink, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(config.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", config.Port, err)
	}

	return newSerialLink(port, config.SpeedScale, options...), nil
}

func newSerialLink(port io.ReadWriteCloser, scale float64, options ...func(l *SerialLink)) *SerialLink {
	l := SerialLink{
		port:   port,
		scale:  scale,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&l)
	}

	return &l
}

// SendControl scales the command by the configured speed factor and
// transmits it as an `rc` line.
func (l *SerialLink) SendControl(cmd nav.Command) error {
	return l.writeCommand(fmt.Sprintf("rc %d %d %d %d",
		l.scaled(cmd.LeftRight),
		l.scaled(cmd.ForwardBackward),
		l.scaled(cmd.UpDown),
		l.scaled(cmd.Yaw)))
}

func (l *SerialLink) Takeoff() error {
	return l.writeCommand("takeoff")
}

func (l *SerialLink) Land() error {
	return l.writeCommand("land")
}

func (l *SerialLink) Halt() error {
	return l.writeCommand("rc 0 0 0 0")
}

func (l *SerialLink) Close() error {
	return l.port.Close()
}

// Get returns the most recent telemetry snapshot. Fields the controller
// has not reported yet are nil. The snapshot is detached from the link
// state: callers can hold it across updates.
func (l *SerialLink) Get() *telemetry.Telemetry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	state := telemetry.Telemetry{Timestamp: l.state.Timestamp}
	state.Height = copyValue(l.state.Height)
	state.Battery = copyValue(l.state.Battery)
	state.Roll = copyValue(l.state.Roll)
	state.Pitch = copyValue(l.state.Pitch)
	state.Yaw = copyValue(l.state.Yaw)

	return &state
}

func copyValue[T float64 | int64](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Monitor reads state reports from the flight controller until the
// context is cancelled or the port fails. It is expected to run on its
// own goroutine for the lifetime of the link.
func (l *SerialLink) Monitor(ctx context.Context) error {
	scanner := bufio.NewScanner(l.port)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := l.parseReport(line, time.Now()); err != nil {
			l.logger.Warn(fmt.Sprintf("error parsing report: %s", err.Error()), slog.String("line", line))
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
		return fmt.Errorf("reading serial port: %w", err)
	}

	return nil
}

// parseReport folds one controller report line into the telemetry state.
// Report lines are `h <cm>`, `bat <percent>` and `att <roll> <pitch> <yaw>`.
// Unknown report types are skipped, not errors: controller firmware adds
// report types faster than this list.
func (l *SerialLink) parseReport(line string, now time.Time) error {
	fields := strings.Fields(line)

	switch fields[0] {
	case "h":
		if len(fields) != 2 {
			return fmt.Errorf("invalid height report")
		}
		height, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("invalid height: %w", err)
		}

		l.mu.Lock()
		l.state.Timestamp = now
		l.state.Height = &height
		l.mu.Unlock()

	case "bat":
		if len(fields) != 2 {
			return fmt.Errorf("invalid battery report")
		}
		battery, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid battery level: %w", err)
		}

		l.mu.Lock()
		l.state.Timestamp = now
		l.state.Battery = &battery
		l.mu.Unlock()

	case "att":
		if len(fields) != 4 {
			return fmt.Errorf("invalid attitude report")
		}
		angles := make([]float64, 3)
		for i, f := range fields[1:] {
			angle, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return fmt.Errorf("invalid attitude angle: %w", err)
			}
			angles[i] = angle
		}

		l.mu.Lock()
		l.state.Timestamp = now
		l.state.Roll = &angles[0]
		l.state.Pitch = &angles[1]
		l.state.Yaw = &angles[2]
		l.mu.Unlock()
	}

	return nil
}

func (l *SerialLink) writeCommand(command string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if _, err := l.port.Write([]byte(command + "\n")); err != nil {
		return fmt.Errorf("writing command: %w", err)
	}
	return nil
}

func (l *SerialLink) scaled(v int) int {
	return int(float64(v) * l.scale)
}
