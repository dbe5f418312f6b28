// Package db keeps the training run history and served batch statistics in SQLite.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
    CREATE TABLE IF NOT EXISTS training_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        started_at DATETIME NOT NULL,
        duration_ms INTEGER NOT NULL,
        train_size INTEGER NOT NULL,
        test_size INTEGER NOT NULL,
        vocabulary INTEGER NOT NULL,
        best_params TEXT NOT NULL,
        cv_score REAL NOT NULL,
        accuracy REAL NOT NULL,
        weighted_f1 REAL NOT NULL,
        macro_f1 REAL NOT NULL,
        baseline_weighted_f1 REAL,
        per_class TEXT NOT NULL DEFAULT '{}',
        fingerprint TEXT NOT NULL,
        artifact_dir TEXT NOT NULL
    );
    CREATE TABLE IF NOT EXISTS batch_statistics (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        created_at DATETIME NOT NULL,
        total_comments INTEGER NOT NULL,
        positive_percent REAL NOT NULL,
        neutral_percent REAL NOT NULL,
        negative_percent REAL NOT NULL,
        fingerprint TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_training_runs_started ON training_runs(started_at);
    CREATE INDEX IF NOT EXISTS idx_batch_statistics_created ON batch_statistics(created_at);
    `

// ErrClosed is returned by Store methods after Close.
var ErrClosed = errors.New("database closed")

// TrainingRun is one row of the training_runs table.
type TrainingRun struct {
	ID                 int64           `json:"id"`
	StartedAt          time.Time       `json:"started_at"`
	DurationMS         int64           `json:"duration_ms"`
	TrainSize          int             `json:"train_size"`
	TestSize           int             `json:"test_size"`
	Vocabulary         int             `json:"vocabulary"`
	BestParams         string          `json:"best_params"`
	CVScore            float64         `json:"cv_score"`
	Accuracy           float64         `json:"accuracy"`
	WeightedF1         float64         `json:"weighted_f1"`
	MacroF1            float64         `json:"macro_f1"`
	BaselineWeightedF1 *float64        `json:"baseline_weighted_f1,omitempty"`
	PerClass           json.RawMessage `json:"per_class,omitempty"`
	Fingerprint        string          `json:"fingerprint"`
	ArtifactDir        string          `json:"artifact_dir"`
}

// BatchRecord is the aggregate of one served batch; comment texts are never stored.
type BatchRecord struct {
	CreatedAt       time.Time
	TotalComments   int
	PositivePercent float64
	NeutralPercent  float64
	NegativePercent float64
	Fingerprint     string
}

// Store persists training runs and served batch statistics in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates the parent directory, opens path in WAL mode and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	database, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	database.SetMaxOpenConns(4)
	database.SetMaxIdleConns(2)
	database.SetConnMaxLifetime(time.Hour)

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: database}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordTrainingRun inserts run and returns its ID.
func (s *Store) RecordTrainingRun(ctx context.Context, run TrainingRun) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrClosed
	}
	var baseline sql.NullFloat64
	if run.BaselineWeightedF1 != nil {
		baseline = sql.NullFloat64{Float64: *run.BaselineWeightedF1, Valid: true}
	}
	perClass := "{}"
	if len(run.PerClass) > 0 {
		perClass = string(run.PerClass)
	}
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO training_runs (
            started_at, duration_ms, train_size, test_size, vocabulary, best_params,
            cv_score, accuracy, weighted_f1, macro_f1, baseline_weighted_f1, per_class, fingerprint, artifact_dir
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC(), run.DurationMS, run.TrainSize, run.TestSize, run.Vocabulary, run.BestParams,
		run.CVScore, run.Accuracy, run.WeightedF1, run.MacroF1, baseline, perClass, run.Fingerprint, run.ArtifactDir)
	if err != nil {
		return 0, fmt.Errorf("insert training run: %w", err)
	}
	return res.LastInsertId()
}

// RecentTrainingRuns returns up to limit runs, newest first.
func (s *Store) RecentTrainingRuns(ctx context.Context, limit int) ([]TrainingRun, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, started_at, duration_ms, train_size, test_size, vocabulary, best_params,
               cv_score, accuracy, weighted_f1, macro_f1, baseline_weighted_f1, per_class, fingerprint, artifact_dir
        FROM training_runs
        ORDER BY started_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]TrainingRun, 0)
	for rows.Next() {
		var r TrainingRun
		var baseline sql.NullFloat64
		var perClass string
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.DurationMS, &r.TrainSize, &r.TestSize, &r.Vocabulary,
			&r.BestParams, &r.CVScore, &r.Accuracy, &r.WeightedF1, &r.MacroF1, &baseline, &perClass,
			&r.Fingerprint, &r.ArtifactDir); err != nil {
			return nil, err
		}
		r.PerClass = json.RawMessage(perClass)
		if baseline.Valid {
			v := baseline.Float64
			r.BaselineWeightedF1 = &v
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Store) RecordBatchStatistics(ctx context.Context, rec BatchRecord) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO batch_statistics (
            created_at, total_comments, positive_percent, neutral_percent, negative_percent, fingerprint
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.CreatedAt.UTC(), rec.TotalComments, rec.PositivePercent, rec.NeutralPercent, rec.NegativePercent,
		rec.Fingerprint)
	if err != nil {
		return fmt.Errorf("insert batch statistics: %w", err)
	}
	return nil
}

// BatchCount reports how many batches have been recorded.
func (s *Store) BatchCount(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrClosed
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM batch_statistics`).Scan(&n)
	return n, err
}
