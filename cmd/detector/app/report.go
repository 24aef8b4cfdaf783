package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/rf-detection/internal/storage"
)

// ReportConfig selects what to print from a detection database.
type ReportConfig struct {
	DBPath        string
	SessionID     int64         // 0 lists the recorded sessions instead
	Since         time.Duration // 0 keeps all detections
	MinConfidence float64
}

// Report prints the recorded sessions, or one session's detections, to w.
func Report(ctx context.Context, config *ReportConfig, w io.Writer) (err error) {
	store := storage.NewSqliteStore(config.DBPath)
	defer func() {
		if cErr := store.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	if config.SessionID == 0 {
		return reportSessions(ctx, store, w)
	}
	return reportDetections(ctx, store, config, w)
}

func reportSessions(ctx context.Context, store storage.Store, w io.Writer) error {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("reading sessions: %w", err)
	}

	for _, sess := range sessions {
		if _, err = fmt.Fprintf(w, "session %d: %s %s/%s\n",
			sess.ID, sess.StartTime.Format(time.RFC3339), sess.DeviceType, sess.DeviceID); err != nil {
			return err
		}
	}
	return nil
}

func reportDetections(ctx context.Context, store storage.Store, config *ReportConfig, w io.Writer) error {
	sess, err := store.Session(ctx, config.SessionID)
	if err != nil {
		return fmt.Errorf("reading session %d: %w", config.SessionID, err)
	}

	var opts []storage.ReadOption
	if config.Since > 0 {
		opts = append(opts, storage.WithStartTime(time.Now().Add(-config.Since)))
	}
	if config.MinConfidence > 0 {
		opts = append(opts, storage.WithMinConfidence(config.MinConfidence))
	}

	events, err := store.Detections(ctx, sess.ID, opts...)
	if err != nil {
		return fmt.Errorf("reading detections: %w", err)
	}

	for _, event := range events {
		if _, err = fmt.Fprintf(w, "%s confidence=%0.2f\n",
			event.Timestamp.Format(time.RFC3339), event.Confidence); err != nil {
			return err
		}
		for _, peak := range event.Peaks {
			if _, err = fmt.Fprintf(w, "  %s %0.1fdB (bin %d)\n",
				humanize.SIWithDigits(peak.Frequency, 2, "Hz"), peak.Power, peak.Bin); err != nil {
				return err
			}
		}
	}
	return nil
}
