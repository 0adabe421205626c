package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/roman-kulish/marker-navigation/internal/flight"
	"github.com/roman-kulish/marker-navigation/internal/nav"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

// rollbackWithError is a no-op after a successful commit: Rollback then
// reports sql.ErrTxDone, which must not clobber the nil return of a
// transaction that went through.
func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if rErr := rb.Rollback(); rErr != nil && !errors.Is(rErr, sql.ErrTxDone) && *err == nil {
		*err = rErr
	}
}

func toRecordData(sessionID int64, r flight.Record) *recordData {
	return &recordData{
		SessionID:     sessionID,
		Timestamp:     r.Timestamp.UTC(),
		Phase:         r.Phase.String(),
		TargetID:      int64(r.TargetID),
		ReachedID:     int64(r.ReachedID),
		MaxID:         int64(r.MaxID),
		CurrentHeight: r.Height,
		TargetHeight:  r.TargetHeight,

		MarkerX: sql.NullFloat64{
			Float64: toSQLNullType[float64](r.MarkerX),
			Valid:   r.MarkerX != nil,
		},
		MarkerY: sql.NullFloat64{
			Float64: toSQLNullType[float64](r.MarkerY),
			Valid:   r.MarkerY != nil,
		},
		MarkerDistance: sql.NullFloat64{
			Float64: toSQLNullType[float64](r.MarkerDist),
			Valid:   r.MarkerDist != nil,
		},

		ControlLateral:      int64(r.Command.LeftRight),
		ControlLongitudinal: int64(r.Command.ForwardBackward),
		ControlVertical:     int64(r.Command.UpDown),
		ControlYaw:          int64(r.Command.Yaw),

		Battery: sql.NullInt64{
			Int64: toSQLNullType[int64](r.Battery),
			Valid: r.Battery != nil,
		},
	}
}

func fromRecordData(data *recordData) (flight.Record, error) {
	phase, err := nav.ParsePhase(data.Phase)
	if err != nil {
		return flight.Record{}, fmt.Errorf("parsing record phase: %w", err)
	}

	r := flight.Record{
		Timestamp:    data.Timestamp,
		Phase:        phase,
		TargetID:     int(data.TargetID),
		ReachedID:    int(data.ReachedID),
		MaxID:        int(data.MaxID),
		Height:       data.CurrentHeight,
		TargetHeight: data.TargetHeight,
		Command: nav.Command{
			LeftRight:       int(data.ControlLateral),
			ForwardBackward: int(data.ControlLongitudinal),
			UpDown:          int(data.ControlVertical),
			Yaw:             int(data.ControlYaw),
		},
	}

	if data.MarkerX.Valid {
		r.MarkerX = &data.MarkerX.Float64
	}
	if data.MarkerY.Valid {
		r.MarkerY = &data.MarkerY.Float64
	}
	if data.MarkerDistance.Valid {
		r.MarkerDist = &data.MarkerDistance.Float64
	}
	if data.Battery.Valid {
		r.Battery = &data.Battery.Int64
	}

	return r, nil
}

func toSQLNullType[T float64 | int64, Y float64 | int | int64](f *Y) T {
	if f == nil {
		return 0
	}
	return T(*f)
}
