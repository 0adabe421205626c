package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      uuid,
                      start_time,
                      detector_type,
                      device_id,
                      config)
VALUES (?, CURRENT_TIMESTAMP, ?, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    uuid,
    start_time,
    detector_type,
    device_id,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    uuid,
    start_time,
    detector_type,
    device_id,
    config
FROM sessions
ORDER BY start_time`

	selectRecordsSQL = `
SELECT
    timestamp,
    phase,
    target_id,
    reached_id,
    max_id,
    current_height,
    target_height,
    marker_x,
    marker_y,
    marker_distance,
    control_lateral,
    control_longitudinal,
    control_vertical,
    control_yaw,
    battery
FROM records
WHERE
    session_id = ?
    AND timestamp BETWEEN ? AND ?
ORDER BY timestamp, id`

	selectTimeBoundsSQL = `
SELECT
    MIN(timestamp),
    MAX(timestamp)
FROM records
WHERE
    session_id = ?`

	// Index creation is deferred until Close so flight-time inserts stay
	// append-only.
	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_records_session_time ON records (session_id, timestamp)`
)

//go:embed schema.sql
var initSchemaSQL string
