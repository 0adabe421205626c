package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roman-kulish/marker-navigation/internal/drone"
	"github.com/roman-kulish/marker-navigation/internal/flight"
	"github.com/roman-kulish/marker-navigation/internal/nav"
	"github.com/roman-kulish/marker-navigation/internal/operator"
	"github.com/roman-kulish/marker-navigation/internal/storage"
	"github.com/roman-kulish/marker-navigation/internal/telemetry"
	"github.com/roman-kulish/marker-navigation/internal/vision"
)

const (
	maxBatchSize        = 100
	defaultTickInterval = 100 * time.Millisecond
	frameQueueSize      = 16
)

// WithMaxBatchSize sets the maximum batch size of collected records to store
// within a single database transaction.
func WithMaxBatchSize(size int) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.maxBatchSize = size
	}
}

// WithTelemetry sets the telemetry provider to use for the current height
// reading and for enriching flight records.
func WithTelemetry(provider telemetry.Provider) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.telemetry = provider
	}
}

// WithOperator attaches the operator command channel.
func WithOperator(server *operator.Server) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.operator = server
	}
}

// WithTickInterval sets the control loop period.
func WithTickInterval(interval time.Duration) func(*Orchestrator) {
	return func(o *Orchestrator) {
		if interval > 0 {
			o.tickInterval = interval
		}
	}
}

// WithSearchYawRate sets the rotation command issued while the target is
// lost. Zero disables the search rotation.
func WithSearchYawRate(rate int) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.searchYawRate = rate
	}
}

// WithPIDResetOnReacquire clears accumulated PID state when markers come
// back into view after the target was lost.
func WithPIDResetOnReacquire() func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.resetPIDOnReacquire = true
	}
}

// WithDetectorConfig records the detector configuration against the
// flight session.
func WithDetectorConfig(config any) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.detectorConfig = config
	}
}

// Orchestrator runs one mission: it feeds detector frames through the
// navigation engine on a fixed tick, pushes the resulting commands to the
// drone link, answers the operator channel and persists one record per
// tick.
type Orchestrator struct {
	engine *nav.Engine
	device *vision.Device
	link   drone.Link
	buffer *vision.FrameBuffer

	logger    *slog.Logger
	store     storage.Store
	telemetry telemetry.Provider
	operator  *operator.Server

	detectorConfig any

	tickInterval        time.Duration
	searchYawRate       int
	resetPIDOnReacquire bool
	maxBatchSize        int

	sessionID int64
	batch     []flight.Record
	wasLost   bool
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(engine *nav.Engine, device *vision.Device, link drone.Link, store storage.Store, logger *slog.Logger, options ...func(*Orchestrator)) *Orchestrator {
	o := Orchestrator{
		engine:       engine,
		device:       device,
		link:         link,
		buffer:       vision.NewFrameBuffer(),
		logger:       logger,
		store:        store,
		tickInterval: defaultTickInterval,
		maxBatchSize: maxBatchSize,
	}

	for _, option := range options {
		option(&o)
	}

	o.batch = make([]flight.Record, 0, o.maxBatchSize)

	return &o
}

// Run flies the mission until landing, operator stop, capture failure or
// context cancellation. It blocks for the whole flight.
func (o *Orchestrator) Run(ctx context.Context) (err error) {
	o.sessionID, err = o.store.CreateSession(ctx, o.device.Detector(), o.device.DeviceID(), o.detectorConfig)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	frames := make(chan vision.Frame, frameQueueSize)
	captureStopped, err := o.device.BeginCapture(ctx, frames)
	if err != nil {
		return fmt.Errorf("starting frame capture: %w", err)
	}
	defer o.device.Stop()

	go o.handleFrames(frames)

	if err = o.link.Takeoff(); err != nil {
		return fmt.Errorf("taking off: %w", err)
	}

	o.notify("navigation started")
	err = o.fly(ctx, captureStopped)

	if landErr := o.land(ctx); landErr != nil && err == nil {
		err = landErr
	}
	return err
}

func (o *Orchestrator) fly(ctx context.Context, captureStopped <-chan error) error {
	// A nil operator leaves requests as a nil channel that never fires.
	var requests <-chan operator.Request
	if o.operator != nil {
		requests = o.operator.Requests()
	}

	ticker := time.NewTicker(o.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("mission aborted")
			return nil

		case err := <-captureStopped:
			if err != nil {
				return fmt.Errorf("frame capture failed: %w", err)
			}
			return fmt.Errorf("frame capture stopped unexpectedly")

		case req := <-requests:
			if stop := o.handleRequest(req); stop {
				o.logger.Info("mission stopped by operator")
				return nil
			}

		case now := <-ticker.C:
			if err := o.tick(ctx, now); err != nil {
				o.logger.Error(err.Error())
			}
			if o.engine.Phase() == nav.PhaseLanding {
				o.logger.Info("landing marker reached")
				o.notify("landing marker reached")
				return nil
			}
		}
	}
}

// tick advances the mission by one control period. The engine only runs
// when a fresh frame is available; a stalled detector leaves the last
// command in effect, except for the target-lost search rotation.
func (o *Orchestrator) tick(ctx context.Context, now time.Time) error {
	frame := o.buffer.Take()
	if frame == nil {
		if o.searchYawRate > 0 && o.engine.IsTargetLost(now) {
			o.wasLost = true
			return o.link.SendControl(nav.Command{Yaw: o.searchYawRate})
		}
		return nil
	}

	if o.resetPIDOnReacquire && o.wasLost && len(frame.Markers) > 0 {
		o.engine.ResetPID()
	}

	var state *telemetry.Telemetry
	if o.telemetry != nil {
		state = o.telemetry.Get()
	}

	snapshot := o.engine.Tick(frame.Markers, o.currentHeight(state), now)

	command := snapshot.Command
	if snapshot.Marker == nil && o.engine.IsTargetLost(now) {
		o.wasLost = true
		if o.searchYawRate > 0 {
			command.Yaw = o.searchYawRate
		}
	} else if snapshot.Marker != nil {
		o.wasLost = false
	}

	if o.engine.ShouldRefreshMaxID(now) {
		o.logger.Warn("highest observed marker identity is stale",
			slog.Int("maxID", snapshot.MaxID))
	}

	if err := o.link.SendControl(command); err != nil {
		return fmt.Errorf("sending control command: %w", err)
	}

	o.batch = append(o.batch, flight.FromSnapshot(snapshot, state))
	if len(o.batch) >= o.maxBatchSize {
		return o.flush(ctx)
	}
	return nil
}

// currentHeight prefers the vehicle's own report and falls back to the
// altitude setpoint when the link does not supply one.
func (o *Orchestrator) currentHeight(state *telemetry.Telemetry) float64 {
	if state != nil && state.Height != nil {
		return *state.Height
	}
	return o.engine.TargetHeight()
}

func (o *Orchestrator) handleRequest(req operator.Request) bool {
	switch req.Kind {
	case operator.KindStop:
		o.notify("stopping")
		return true

	case operator.KindHeight:
		var state *telemetry.Telemetry
		if o.telemetry != nil {
			state = o.telemetry.Get()
		}
		if state != nil && state.Height != nil {
			o.notify("height: %.0f cm", *state.Height)
		} else {
			o.notify("height: unavailable")
		}

	case operator.KindSetAltitude:
		o.engine.SetTargetHeight(float64(req.Altitude))
		if link, ok := o.link.(*drone.DryRunLink); ok {
			link.SetHeight(float64(req.Altitude))
		}
		o.notify("target altitude: %d cm", req.Altitude)
		o.logger.Info("altitude retargeted", slog.Int("cm", req.Altitude))
	}

	return false
}

// notify forwards a status line to the operator, when one is attached.
func (o *Orchestrator) notify(format string, args ...any) {
	if o.operator != nil {
		o.operator.Notify(format, args...)
	}
}

func (o *Orchestrator) handleFrames(frames <-chan vision.Frame) {
	for frame := range frames {
		f := frame
		if err := o.buffer.Insert(&f); err != nil {
			o.logger.Warn(fmt.Sprintf("dropping frame: %s", err.Error()))
		}
	}
}

func (o *Orchestrator) land(ctx context.Context) error {
	if err := o.link.Halt(); err != nil {
		o.logger.Error(fmt.Sprintf("halting: %s", err.Error()))
	}
	if err := o.link.Land(); err != nil {
		o.logger.Error(fmt.Sprintf("landing: %s", err.Error()))
	}

	if dropped := o.buffer.Dropped(); dropped > 0 {
		o.logger.Info("frames dropped during flight", slog.Int64("count", dropped))
	}

	// The mission context may already be cancelled; the final batch is
	// still worth keeping.
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	return o.flush(flushCtx)
}

func (o *Orchestrator) flush(ctx context.Context) error {
	if len(o.batch) == 0 {
		return nil
	}

	if err := o.store.StoreRecords(ctx, o.sessionID, o.batch); err != nil {
		return fmt.Errorf("storing records: %w", err)
	}

	o.batch = o.batch[:0]
	return nil
}
