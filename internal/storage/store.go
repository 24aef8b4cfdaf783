package storage

import (
	"context"
	"time"

	"github.com/roman-kulish/rf-detection/internal/detect"
)

// Session represents a single monitoring session with a specific sample
// source. Each session captures metadata about when and how monitoring was
// performed.
type Session struct {
	ID         int64     `json:"id"`               // Unique identifier for the session
	StartTime  time.Time `json:"startTime"`        // When the monitoring session began
	DeviceType string    `json:"deviceType"`       // Type of sample source (e.g., "rtl-sdr", "sim")
	DeviceID   string    `json:"deviceID"`         // Identifier of the specific source (e.g., device index)
	Config     *string   `json:"config,omitempty"` // Optional source configuration in JSON format
}

// Store provides an interface for persisting detection events across
// monitoring sessions. All writes should be considered atomic.
type Store interface {
	// CreateSession initializes a new monitoring session and returns its
	// unique identifier. Config can be a string, []byte, or any
	// JSON-serializable value.
	CreateSession(ctx context.Context, deviceType, deviceID string, config any) (sessionID int64, err error)

	// Session retrieves a monitoring session by its ID.
	Session(ctx context.Context, id int64) (*Session, error)

	// Sessions returns all monitoring sessions ordered by start time.
	Sessions(ctx context.Context) ([]*Session, error)

	// StoreDetection saves one detection event, including all of its
	// peaks, in a single transaction.
	StoreDetection(ctx context.Context, sessionID int64, event *detect.Event) (detectionID int64, err error)

	// Detections returns the detection events recorded for a session in
	// detection order, optionally narrowed by read options.
	Detections(ctx context.Context, sessionID int64, opts ...ReadOption) ([]*detect.Event, error)

	// Close releases all database connections and resources. It is safe
	// to call Close multiple times.
	Close() error
}
