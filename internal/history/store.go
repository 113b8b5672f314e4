package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"subtitler/internal/services"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store persists the job ledger in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the history database and applies migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history: database path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Begin records a running job. An empty ID is replaced with a new UUID.
func (s *Store) Begin(ctx context.Context, job Job) (*Job, error) {
	if strings.TrimSpace(job.ID) == "" {
		job.ID = uuid.NewString()
	}
	job.Status = StatusRunning
	job.CreatedAt = s.now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (
            id, filename, model_size, task, language, format, max_chars, status, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Filename,
		job.ModelSize,
		job.Task,
		nullableString(job.Language),
		job.Format,
		job.MaxChars,
		job.Status,
		job.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return &job, nil
}

// Complete marks a job as succeeded.
func (s *Store) Complete(ctx context.Context, id string, outcome Outcome) error {
	return s.finish(ctx, id, StatusSucceeded, "", outcome)
}

// Fail marks a job as failed with the given message.
func (s *Store) Fail(ctx context.Context, id, message string) error {
	return s.finish(ctx, id, StatusFailed, message, Outcome{})
}

func (s *Store) finish(ctx context.Context, id string, status Status, message string, outcome Outcome) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	finished := s.now().UTC()
	duration := finished.Sub(job.CreatedAt)
	if duration < 0 {
		duration = 0
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, segments = ?, adjusted = ?,
            detected_language = ?, finished_at = ?, duration_ms = ?
        WHERE id = ?`,
		status,
		nullableString(message),
		outcome.Segments,
		outcome.Adjusted,
		nullableString(outcome.DetectedLanguage),
		finished.Format(timeLayout),
		duration.Milliseconds(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	return nil
}

const selectColumns = `id, filename, model_size, task, language, format, max_chars, status,
    error_message, segments, adjusted, detected_language, created_at, finished_at, duration_ms`

// Get fetches a job by identifier.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "history", "get", fmt.Sprintf("job %s", id), nil)
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// List returns the most recent jobs first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Job, error) {
	query := "SELECT " + selectColumns + " FROM jobs ORDER BY created_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats counts jobs by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM jobs GROUP BY status")
	if err != nil {
		return stats, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("scan job stats: %w", err)
		}
		stats.Total += count
		switch Status(status) {
		case StatusRunning:
			stats.Running = count
		case StatusSucceeded:
			stats.Succeeded = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

// Prune deletes finished jobs created before cutoff and returns the count.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM jobs WHERE status != ? AND created_at < ?",
		StatusRunning,
		cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return res.RowsAffected()
}

// FailInterrupted marks jobs still running from a previous process as failed.
func (s *Store) FailInterrupted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, error_message = ?, finished_at = ? WHERE status = ?",
		StatusFailed,
		"interrupted by daemon restart",
		s.now().UTC().Format(timeLayout),
		StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job          Job
		status       string
		language     sql.NullString
		errorMessage sql.NullString
		detected     sql.NullString
		createdRaw   string
		finishedRaw  sql.NullString
		durationMS   int64
	)
	if err := scanner.Scan(
		&job.ID, &job.Filename, &job.ModelSize, &job.Task, &language, &job.Format, &job.MaxChars, &status,
		&errorMessage, &job.Segments, &job.Adjusted, &detected, &createdRaw, &finishedRaw, &durationMS,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	job.Status = Status(status)
	job.Language = language.String
	job.ErrorMessage = errorMessage.String
	job.DetectedLanguage = detected.String
	job.Duration = time.Duration(durationMS) * time.Millisecond

	created, err := time.Parse(timeLayout, createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	job.CreatedAt = created
	if finishedRaw.Valid && finishedRaw.String != "" {
		finished, err := time.Parse(timeLayout, finishedRaw.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		job.FinishedAt = &finished
	}
	return &job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
