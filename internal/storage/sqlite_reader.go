package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/roman-kulish/marker-navigation/internal/flight"
)

// ErrNoData indicates that no flight records exist for the given parameters.
var ErrNoData = fmt.Errorf("no data available")

// FlightReader provides an iterator-based interface for reading per-tick
// flight records in timestamp order with optional time filtering.
type FlightReader interface {
	// Session returns metadata about the flight session this reader is
	// accessing. This includes detector information, timing, and
	// configuration details.
	Session() *flight.Session

	// Next advances the iterator and returns true if there is another
	// record to read, false when the iteration is complete or if an error
	// occurred.
	Next(context.Context) bool

	// Current returns the current record in the iteration.
	// If called after Next() returns false, the behavior is undefined.
	Current() *flight.Record

	// Error returns any error that occurred during iteration.
	// If Next() returns false, Error() should be checked to distinguish
	// between end of data and an error condition.
	Error() error

	// Close releases any resources associated with the reader.
	// After Close is called, the reader should not be used.
	Close() error
}

// ReaderOption configures a FlightReader with specific filtering criteria.
type ReaderOption func(*SqliteFlightReader)

// WithStartTime sets the start time filter for the flight reader.
// Records with timestamps before this time will be excluded.
func WithStartTime(t time.Time) ReaderOption {
	return func(r *SqliteFlightReader) {
		r.startTime = &t
	}
}

// WithEndTime sets the end time filter for the flight reader.
// Records with timestamps after this time will be excluded.
func WithEndTime(t time.Time) ReaderOption {
	return func(r *SqliteFlightReader) {
		r.endTime = &t
	}
}

// WithTimeRange sets both start and end time filters.
// This is a convenience function equivalent to applying both WithStartTime
// and WithEndTime.
func WithTimeRange(startTime, endTime time.Time) ReaderOption {
	return func(r *SqliteFlightReader) {
		r.startTime = &startTime
		r.endTime = &endTime
	}
}

// newSqliteFlightReader creates a new FlightReader instance for reading
// flight records from a database, applying optional filters.
func newSqliteFlightReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...ReaderOption) (*SqliteFlightReader, error) {
	fr := &SqliteFlightReader{
		db:        db,
		sessionID: sessionID,
	}
	for _, opt := range opts {
		opt(fr)
	}
	if err := fr.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return fr, nil
}

// SqliteFlightReader implements FlightReader for SQLite database backend.
type SqliteFlightReader struct {
	db *sql.DB

	sessionID int64
	session   *flight.Session

	startTime *time.Time // Optional start of time range filter
	endTime   *time.Time // Optional end of time range filter

	current *flight.Record
	rows    *sql.Rows
	err     error
}

func (fr *SqliteFlightReader) init(ctx context.Context) error {
	if fr.db == nil {
		return errors.New("database connection required")
	}
	if fr.sessionID <= 0 {
		return errors.New("session ID required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading session", fn: fr.loadSession},
		{msg: "initializing filters", fn: fr.initFilters},
		{msg: "initializing query", fn: fr.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (fr *SqliteFlightReader) loadSession(ctx context.Context) (err error) {
	stmt, err := fr.db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var sess flight.Session
	var config sql.NullString
	if err = stmt.QueryRowContext(ctx, fr.sessionID).Scan(&sess.ID, &sess.UUID, &sess.StartTime, &sess.DetectorType, &sess.DeviceID, &config); err != nil {
		return fmt.Errorf("querying session: %w", err)
	}
	if config.Valid {
		sess.Config = &config.String
	}

	fr.session = &sess
	return
}

func (fr *SqliteFlightReader) initFilters(ctx context.Context) (err error) {
	if fr.startTime != nil && fr.endTime != nil {
		if fr.startTime.After(*fr.endTime) {
			return fmt.Errorf("start time %s is after end time %s", fr.startTime, fr.endTime)
		}
		return nil
	}

	stmt, err := fr.db.PrepareContext(ctx, selectTimeBoundsSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var first, last sql.NullTime
	if err = stmt.QueryRowContext(ctx, fr.sessionID).Scan(&first, &last); err != nil {
		return fmt.Errorf("scanning time bounds: %w", err)
	}
	if !first.Valid || !last.Valid {
		return ErrNoData
	}

	if fr.startTime == nil {
		fr.startTime = &first.Time
	}
	if fr.endTime == nil {
		fr.endTime = &last.Time
	}

	return nil
}

func (fr *SqliteFlightReader) initQuery(ctx context.Context) (err error) {
	stmt, err := fr.db.PrepareContext(ctx, selectRecordsSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if fr.rows, err = stmt.QueryContext(ctx, fr.sessionID, fr.startTime, fr.endTime); err != nil {
		return err
	}
	return nil
}

func (fr *SqliteFlightReader) scanRecord() (*flight.Record, error) {
	var data recordData
	err := fr.rows.Scan(
		&data.Timestamp,
		&data.Phase,
		&data.TargetID,
		&data.ReachedID,
		&data.MaxID,
		&data.CurrentHeight,
		&data.TargetHeight,
		&data.MarkerX,
		&data.MarkerY,
		&data.MarkerDistance,
		&data.ControlLateral,
		&data.ControlLongitudinal,
		&data.ControlVertical,
		&data.ControlYaw,
		&data.Battery,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	record, err := fromRecordData(&data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (fr *SqliteFlightReader) Session() *flight.Session {
	return fr.session
}

func (fr *SqliteFlightReader) Next(ctx context.Context) bool {
	if fr.err != nil || fr.rows == nil {
		return false
	}

	select {
	case <-ctx.Done():
		fr.err = ctx.Err()
		return false
	default:
	}

	if !fr.rows.Next() {
		return false
	}

	if fr.current, fr.err = fr.scanRecord(); fr.err != nil {
		return false
	}
	return true
}

func (fr *SqliteFlightReader) Current() *flight.Record {
	return fr.current
}

func (fr *SqliteFlightReader) Error() error {
	if fr.err != nil {
		return fr.err
	}
	if fr.rows != nil {
		return fr.rows.Err()
	}
	return nil
}

func (fr *SqliteFlightReader) Close() error {
	if fr.rows != nil {
		err := fr.rows.Close()
		fr.current = nil
		fr.rows = nil
		return err
	}
	return nil
}
