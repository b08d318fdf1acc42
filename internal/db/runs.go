package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/blink.report/internal/blink"
	"github.com/banshee-data/blink.report/internal/capture"
	"github.com/banshee-data/blink.report/internal/monitoring"
)

// ErrRunNotFound is returned when a requested run ID has no stored record.
var ErrRunNotFound = errors.New("run not found")

// AnalysisRun is one persisted analysis of a video.
type AnalysisRun struct {
	RunID           string    `json:"run_id"`
	Video           string    `json:"video"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	FPS             float64   `json:"fps"`
	FrameCount      int       `json:"frame_count"`
	DurationSecs    float64   `json:"duration_secs"`
	TotalFrames     int       `json:"total_frames"`
	SampledFrames   int       `json:"sampled_frames"`
	TotalBlinks     int       `json:"total_blinks"`
	BlinkRatePerMin float64   `json:"blink_rate_per_min"`
	EARThreshold    float64   `json:"ear_threshold"`
	MinRun          int       `json:"min_run"`
	MeanEAR         float64   `json:"mean_ear"`
	MinEAR          float64   `json:"min_ear"`
	MaxEAR          float64   `json:"max_ear"`
	StdDevEAR       float64   `json:"stddev_ear"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewRun builds an AnalysisRun with a fresh run ID from a completed
// session's metadata, detection parameters, and statistics.
func NewRun(videoPath string, meta capture.Metadata, det blink.Config, stats blink.Stats) *AnalysisRun {
	return &AnalysisRun{
		RunID:           uuid.NewString(),
		Video:           videoPath,
		Width:           meta.Width,
		Height:          meta.Height,
		FPS:             meta.FPS,
		FrameCount:      meta.FrameCount,
		DurationSecs:    meta.DurationSeconds(),
		TotalFrames:     stats.TotalFrames,
		SampledFrames:   stats.SampledFrames,
		TotalBlinks:     stats.TotalBlinks,
		BlinkRatePerMin: stats.BlinkRatePerMin,
		EARThreshold:    det.EARThreshold,
		MinRun:          det.MinRun,
		MeanEAR:         stats.MeanEAR,
		MinEAR:          stats.MinEAR,
		MaxEAR:          stats.MaxEAR,
		StdDevEAR:       stats.StdDevEAR,
	}
}

// SaveRun inserts a run with its events and EAR samples in one transaction.
func (db *DB) SaveRun(ctx context.Context, run *AnalysisRun, events []blink.Event, samples []blink.FrameSample) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			// ErrTxDone means the transaction was already committed.
			monitoring.Logf("warning: failed to rollback transaction: %v", err)
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analysis_runs (
			run_id, video, width, height, fps, frame_count, duration_secs,
			total_frames, sampled_frames, total_blinks, blink_rate_per_min,
			ear_threshold, min_run, mean_ear, min_ear, max_ear, stddev_ear
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Video, run.Width, run.Height, run.FPS, run.FrameCount,
		run.DurationSecs, run.TotalFrames, run.SampledFrames, run.TotalBlinks,
		run.BlinkRatePerMin, run.EARThreshold, run.MinRun,
		run.MeanEAR, run.MinEAR, run.MaxEAR, run.StdDevEAR,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	eventStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO blink_events (
			run_id, blink_number, start_frame, end_timestamp_ms,
			duration_frames, avg_left_ear, avg_right_ear, avg_ear
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer eventStmt.Close()

	for _, e := range events {
		if _, err := eventStmt.ExecContext(ctx,
			run.RunID, e.BlinkNumber, e.StartFrame, e.EndTimestampMs,
			e.DurationFrames, e.AvgLeftEAR, e.AvgRightEAR, e.AvgEAR,
		); err != nil {
			return fmt.Errorf("failed to insert event %d: %w", e.BlinkNumber, err)
		}
	}

	sampleStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ear_samples (
			run_id, frame, timestamp_ms, left_ear, right_ear, avg_ear
		) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer sampleStmt.Close()

	for _, s := range samples {
		if _, err := sampleStmt.ExecContext(ctx,
			run.RunID, s.FrameIndex, s.TimestampMs, s.LeftEAR, s.RightEAR, s.AvgEAR,
		); err != nil {
			return fmt.Errorf("failed to insert sample for frame %d: %w", s.FrameIndex, err)
		}
	}

	return tx.Commit()
}

const runColumns = `run_id, video, width, height, fps, frame_count, duration_secs,
	total_frames, sampled_frames, total_blinks, blink_rate_per_min,
	ear_threshold, min_run, mean_ear, min_ear, max_ear, stddev_ear, created_at`

func scanRun(row interface{ Scan(...any) error }) (*AnalysisRun, error) {
	var run AnalysisRun
	var createdAtUnix int64
	err := row.Scan(
		&run.RunID, &run.Video, &run.Width, &run.Height, &run.FPS,
		&run.FrameCount, &run.DurationSecs, &run.TotalFrames,
		&run.SampledFrames, &run.TotalBlinks, &run.BlinkRatePerMin,
		&run.EARThreshold, &run.MinRun,
		&run.MeanEAR, &run.MinEAR, &run.MaxEAR, &run.StdDevEAR,
		&createdAtUnix,
	)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(createdAtUnix, 0)
	return &run, nil
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(ctx context.Context, runID string) (*AnalysisRun, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM analysis_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]*AnalysisRun, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM analysis_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*AnalysisRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunEvents retrieves a run's blink events in blink-number order.
func (db *DB) RunEvents(ctx context.Context, runID string) ([]blink.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT blink_number, start_frame, end_timestamp_ms, duration_frames,
		       avg_left_ear, avg_right_ear, avg_ear
		FROM blink_events WHERE run_id = ? ORDER BY blink_number`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []blink.Event
	for rows.Next() {
		var e blink.Event
		if err := rows.Scan(
			&e.BlinkNumber, &e.StartFrame, &e.EndTimestampMs, &e.DurationFrames,
			&e.AvgLeftEAR, &e.AvgRightEAR, &e.AvgEAR,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// RunSamples retrieves a run's EAR samples in frame order.
func (db *DB) RunSamples(ctx context.Context, runID string) ([]blink.FrameSample, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT frame, timestamp_ms, left_ear, right_ear, avg_ear
		FROM ear_samples WHERE run_id = ? ORDER BY frame`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []blink.FrameSample
	for rows.Next() {
		s := blink.FrameSample{FaceDetected: true}
		if err := rows.Scan(
			&s.FrameIndex, &s.TimestampMs, &s.LeftEAR, &s.RightEAR, &s.AvgEAR,
		); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}
