package storage

import "time"

// readQuery accumulates WHERE fragments for the detection read path.
type readQuery struct {
	where []string
	args  []any
}

// ReadOption narrows a Detections query.
type ReadOption func(*readQuery)

// WithStartTime keeps detections recorded at or after t.
func WithStartTime(t time.Time) ReadOption {
	return func(q *readQuery) {
		q.where = append(q.where, "d.timestamp >= ?")
		q.args = append(q.args, t.UTC())
	}
}

// WithEndTime keeps detections recorded at or before t.
func WithEndTime(t time.Time) ReadOption {
	return func(q *readQuery) {
		q.where = append(q.where, "d.timestamp <= ?")
		q.args = append(q.args, t.UTC())
	}
}

// WithTimeRange keeps detections recorded between start and end inclusive.
func WithTimeRange(start, end time.Time) ReadOption {
	return func(q *readQuery) {
		WithStartTime(start)(q)
		WithEndTime(end)(q)
	}
}

// WithMinConfidence keeps detections with confidence of at least c.
func WithMinConfidence(c float64) ReadOption {
	return func(q *readQuery) {
		q.where = append(q.where, "d.confidence >= ?")
		q.args = append(q.args, c)
	}
}
