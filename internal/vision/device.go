package vision

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	// ParseErrorsThreshold defines the number of consecutive parse errors allowed
	ParseErrorsThreshold = 5
)

var (
	// ErrTooManyParseErrors is returned when the number of consecutive parse errors exceeds the threshold
	ErrTooManyParseErrors = errors.New("too many consecutive parse errors")

	// ErrBrokenPipe is returned when there's an error reading from stdout or stderr
	ErrBrokenPipe = errors.New("broken pipe")
)

// Handler interface defines the methods required for handling a detector
// process: building its command line, parsing one line of its output into
// frames, and naming the detector type.
type Handler interface {
	Cmd(ctx context.Context) *exec.Cmd
	Parse(line string, deviceID string, frames chan<- Frame) error
	Detector() string
}

// WithLogger sets the logger for the device
func WithLogger(logger *slog.Logger) func(d *Device) {
	return func(d *Device) {
		d.logger = logger.With(
			slog.String("detector", d.handler.Detector()),
			slog.String("deviceID", d.deviceID),
		)
	}
}

// WithParseErrorsThreshold sets the threshold for consecutive parse errors
func WithParseErrorsThreshold(threshold uint8) func(d *Device) {
	return func(d *Device) {
		d.parseErrorsThreshold = threshold
	}
}

// Device runs an external marker detector process and turns its stdout
// into a stream of frames. It can be started (frame capture) and stopped.
type Device struct {
	deviceID string
	handler  Handler

	isCapturing atomic.Bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	parseErrorsThreshold uint8
	logger               *slog.Logger
}

// NewDevice creates a new Device instance with a discard logger
func NewDevice(deviceID string, h Handler, options ...func(d *Device)) *Device {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	d := Device{
		deviceID:             deviceID,
		handler:              h,
		logger:               logger,
		parseErrorsThreshold: ParseErrorsThreshold,
	}

	for _, option := range options {
		option(&d)
	}

	return &d
}

// DeviceID returns the configured device name.
func (d *Device) DeviceID() string {
	return d.deviceID
}

// Detector returns the detector type of the underlying handler.
func (d *Device) Detector() string {
	return d.handler.Detector()
}

// BeginCapture starts the detector process and parses frames from its
// output, sending them to the frames channel. The returned channel is
// closed when capture stops; it carries the joined error when the stop
// was a failure.
func (d *Device) BeginCapture(ctx context.Context, frames chan<- Frame) (<-chan error, error) {
	if d.isCapturing.Load() {
		return nil, fmt.Errorf("device is already running")
	}

	d.isCapturing.Store(true)

	ctx, d.cancel = context.WithCancel(ctx)
	cmd := d.handler.Cmd(ctx)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		d.isCapturing.Store(false) // Reset running state on error
		return nil, fmt.Errorf("error creating stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		d.isCapturing.Store(false) // Reset running state on error
		return nil, fmt.Errorf("error creating stderr pipe: %w", err)
	}

	if err = cmd.Start(); err != nil {
		d.isCapturing.Store(false) // Reset running state on error
		return nil, fmt.Errorf("error starting command: %w", err)
	}

	captureStopped := make(chan error)

	d.wg.Add(1)
	go func() {
		defer close(captureStopped)

		d.logger.Info("starting frame capture...")

		done := make(chan error, 3) // expects three results from three goroutines

		go d.handleStdout(stdout, d.deviceID, frames, done)
		go d.handleStderr(stderr, done)
		go d.handleCmdWait(cmd, done)

		var errs []error
		for i := 0; i < cap(done); i++ {
			if err := <-done; err != nil {
				d.cancel() // cancel context on error
				d.logger.Error(err.Error())

				errs = append(errs, err)
			}
		}

		close(done)

		d.logger.Info("frame capture stopped")

		d.isCapturing.Store(false)
		d.wg.Done()

		if len(errs) > 0 {
			captureStopped <- errors.Join(errs...)
		}
	}()

	return captureStopped, nil
}

func (d *Device) Stop() {
	if !d.isCapturing.Load() {
		return // already stopped
	}

	d.cancel()
	d.wg.Wait()
	d.isCapturing.Store(false)
}

// IsCapturing returns true if the device is running
func (d *Device) IsCapturing() bool {
	return d.isCapturing.Load()
}

// handleStdout reads from stdout, parses and sends frames to the frames channel.
func (d *Device) handleStdout(stdout io.Reader, deviceID string, frames chan<- Frame, done chan<- error) {
	var parseErrors uint8

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		if err := d.handler.Parse(line, deviceID, frames); err != nil {
			parseErrors++
			d.logger.Warn(fmt.Sprintf("error parsing frame: %s", err.Error()), slog.String("line", line))

			if parseErrors >= d.parseErrorsThreshold {
				done <- ErrTooManyParseErrors
				return
			}

			continue
		}

		parseErrors = 0 // reset counter
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
		done <- fmt.Errorf("%w: error reading stdout: %w", ErrBrokenPipe, err)
		return
	}

	done <- nil
}

// handleStderr reads from stderr and logs errors.
func (d *Device) handleStderr(stderr io.Reader, done chan<- error) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		d.logger.Warn(fmt.Sprintf("%s >> %s", d.handler.Detector(), line)) // simple logging here
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
		done <- fmt.Errorf("%w: error reading stderr: %w", ErrBrokenPipe, err)
		return
	}

	done <- nil
}

// handleCmdWait waits for the command to exit and sends the error to the error channel
func (d *Device) handleCmdWait(cmd *exec.Cmd, done chan<- error) {
	if err := cmd.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		done <- fmt.Errorf("command exited with error: %w", err)
		return
	}

	done <- nil
}
