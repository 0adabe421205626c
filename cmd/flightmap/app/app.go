package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/roman-kulish/marker-navigation/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	return renderFlight(ctx, store, config, logger)
}

func renderFlight(ctx context.Context, store *storage.SqliteStore, config *Config, logger *slog.Logger) error {
	iter, err := store.ReadFlight(ctx, config.SessionID)
	if err != nil {
		return err
	}
	defer iter.Close()

	session := iter.Session()
	logger.Info("reading flight records",
		slog.Group("session",
			slog.Int64("id", session.ID),
			slog.String("uuid", session.UUID),
			slog.String("detector", session.DetectorType),
			slog.String("device", session.DeviceID),
			slog.String("startTime", session.StartTime.Local().Format(time.DateTime)),
		))

	data := NewFlightData()
	for iter.Next(ctx) {
		data.Update(iter.Current())
	}
	if err = iter.Error(); err != nil {
		return err
	}
	if data.Width() == 0 {
		return fmt.Errorf("session %d has no flight records", config.SessionID)
	}

	stats := ComputeStats(data)

	logger.Info("finished reading flight records",
		slog.Group("stats",
			slog.Int("ticks", stats.Ticks),
			slog.String("duration", stats.Duration.Round(time.Second).String()),
			slog.Int("markersReached", stats.MarkersReached),
			slog.String("avgHeightError", fmt.Sprintf("%.1fcm", stats.AvgHeightError)),
			slog.String("avgMarkerDistance", fmt.Sprintf("%.1fpx", stats.AvgMarkerDistance)),
		))

	renderer, err := NewFlightRenderer(RenderConfig{
		ColorTheme: config.Theme,
		FontPath:   config.FontPath,
	})
	if err != nil {
		return fmt.Errorf("creating flight renderer: %w", err)
	}

	logger.Info("rendering flight map",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Int("width", data.Width()),
		))

	img, err := renderer.Render(data, stats)
	if err != nil {
		return fmt.Errorf("rendering flight map: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}
