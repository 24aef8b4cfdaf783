package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      device_type,
                      device_id,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    device_type,
    device_id,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    device_type,
    device_id,
    config
FROM sessions
ORDER BY start_time`

	insertDetectionSQL = `
INSERT INTO detections (session_id,
                        timestamp,
                        confidence)
VALUES (?, ?, ?)`

	insertPeakSQL = `
INSERT INTO peaks (detection_id,
                   bin,
                   frequency,
                   power)
VALUES (?, ?, ?, ?)`

	selectDetectionsSQL = `
SELECT
    d.id,
    d.timestamp,
    d.confidence,
    p.bin,
    p.frequency,
    p.power
FROM detections d
         JOIN peaks p ON p.detection_id = d.id
WHERE
    d.session_id = ?%s
ORDER BY d.timestamp, d.id, p.bin`
)

//go:embed schema.sql
var initSchemaSQL string
