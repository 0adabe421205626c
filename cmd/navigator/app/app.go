package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roman-kulish/marker-navigation/internal/drone"
	"github.com/roman-kulish/marker-navigation/internal/nav"
	"github.com/roman-kulish/marker-navigation/internal/operator"
	"github.com/roman-kulish/marker-navigation/internal/storage"
	"github.com/roman-kulish/marker-navigation/internal/telemetry"
	"github.com/roman-kulish/marker-navigation/internal/vision"
	"github.com/roman-kulish/marker-navigation/internal/vision/apriltag"
	"github.com/roman-kulish/marker-navigation/internal/vision/aruco"
)

const (
	storageDir = "data"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer store.Close()

	device, err := createDevice(&config.Vision, logger)
	if err != nil {
		return fmt.Errorf("failed to create detector device: %w", err)
	}

	link, provider, err := createLink(ctx, &config.Drone, config.Navigation.TargetHeight, logger)
	if err != nil {
		return fmt.Errorf("failed to create drone link: %w", err)
	}
	defer link.Close()

	engine, err := nav.New(config.Navigation.engineConfig(), time.Now(), nav.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create navigation engine: %w", err)
	}

	options := []func(*Orchestrator){
		WithTickInterval(config.Navigation.TickInterval.Duration()),
		WithSearchYawRate(config.Navigation.SearchYawRate),
		WithDetectorConfig(config.Vision.DetectorConfig()),
	}
	if config.Navigation.ResetPIDOnReacquire {
		options = append(options, WithPIDResetOnReacquire())
	}
	if config.Storage.MaxBatchSize > 0 {
		options = append(options, WithMaxBatchSize(config.Storage.MaxBatchSize))
	}
	if provider != nil {
		options = append(options, WithTelemetry(provider))
	}

	if config.Operator.Enabled {
		server, err := operator.Listen(config.Operator.Listen, operator.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to start operator channel: %w", err)
		}
		go func() {
			if err := server.Serve(ctx); err != nil && err != operator.ErrServerClosed {
				logger.Error(err.Error())
			}
		}()
		defer server.Close()

		options = append(options, WithOperator(server))
	}

	orchestrator := NewOrchestrator(engine, device, link, store, logger, options...)
	return orchestrator.Run(ctx)
}

func createDevice(config *VisionConfig, logger *slog.Logger) (*vision.Device, error) {
	var handler vision.Handler
	var err error
	switch config.Type {
	case DetectorAruco:
		if handler, err = aruco.New(config.Aruco); err != nil {
			return nil, fmt.Errorf("creating ArUco detector: %w", err)
		}

	case DetectorApriltag:
		if handler, err = apriltag.New(config.Apriltag); err != nil {
			return nil, fmt.Errorf("creating AprilTag detector: %w", err)
		}

	default:
		return nil, fmt.Errorf("creating detector: unknown type '%s'", config.Type)
	}

	return vision.NewDevice(config.Name, handler, vision.WithLogger(logger)), nil
}

// createLink builds the actuator link for the configured flight mode. The
// telemetry provider is nil when the link cannot report vehicle state.
func createLink(ctx context.Context, config *drone.Config, targetHeight float64, logger *slog.Logger) (drone.Link, telemetry.Provider, error) {
	switch config.Mode {
	case drone.ModeSerial:
		link, err := drone.OpenSerial(config, drone.WithSerialLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("opening serial link: %w", err)
		}

		go func() {
			if err := link.Monitor(ctx); err != nil {
				logger.Error(fmt.Sprintf("telemetry monitor stopped: %s", err.Error()))
			}
		}()

		return link, link, nil

	case drone.ModeDryRun:
		link := drone.NewDryRunLink(targetHeight, drone.WithDryRunLogger(logger))
		return link, link, nil

	default:
		return nil, nil, fmt.Errorf("unknown flight mode '%s'", config.Mode)
	}
}

func createStorage(config *StorageConfig) (storage.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	var dbPath string
	if config.DataDirectory != "" {
		dbPath = filepath.Join(wd, config.DataDirectory)
	} else {
		dbPath = filepath.Join(wd, storageDir)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, fmt.Errorf("checking storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("flight_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.NewSqliteStore(dbPath), nil
}
