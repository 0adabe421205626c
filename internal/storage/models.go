package storage

import (
	"database/sql"
	"time"
)

type recordData struct {
	ID                  int64
	SessionID           int64
	Timestamp           time.Time
	Phase               string
	TargetID            int64
	ReachedID           int64
	MaxID               int64
	CurrentHeight       float64
	TargetHeight        float64
	MarkerX             sql.NullFloat64
	MarkerY             sql.NullFloat64
	MarkerDistance      sql.NullFloat64
	ControlLateral      int64
	ControlLongitudinal int64
	ControlVertical     int64
	ControlYaw          int64
	Battery             sql.NullInt64
}
