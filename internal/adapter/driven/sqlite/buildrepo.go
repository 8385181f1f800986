package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/htmlmgr/internal/domain/model"
	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BuildStore = (*BuildRepo)(nil)

// BuildRepo is the SQLite implementation of the BuildStore port interface.
type BuildRepo struct {
	db *DB
}

// NewBuildRepo creates a new BuildRepo backed by the given DB.
func NewBuildRepo(db *DB) *BuildRepo {
	return &BuildRepo{db: db}
}

// Record inserts the run or updates the stored row with the same ID.
func (r *BuildRepo) Record(ctx context.Context, run model.BuildRun) error {
	const query = `
		INSERT INTO build_runs (id, tasks, status, output_count, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			tasks = excluded.tasks,
			status = excluded.status,
			output_count = excluded.output_count,
			error = excluded.error,
			finished_at = excluded.finished_at`

	var finishedAt sql.NullString
	if !run.FinishedAt.IsZero() {
		finishedAt = sql.NullString{String: formatTime(run.FinishedAt), Valid: true}
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		run.ID,
		joinTasks(run.Tasks),
		string(run.Status),
		run.OutputCount,
		run.Error,
		formatTime(run.StartedAt),
		finishedAt,
	)
	if err != nil {
		return fmt.Errorf("record build run %s: %w", run.ID, err)
	}
	return nil
}

// Latest returns the most recently started run, or nil if none exist.
func (r *BuildRepo) Latest(ctx context.Context) (*model.BuildRun, error) {
	const query = `
		SELECT id, tasks, status, output_count, error, started_at, finished_at
		FROM build_runs ORDER BY started_at DESC LIMIT 1`

	run, err := scanBuildRun(r.db.Reader.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest build run: %w", err)
	}
	return run, nil
}

// ListRecent returns up to limit runs ordered by started_at DESC.
func (r *BuildRepo) ListRecent(ctx context.Context, limit int) ([]model.BuildRun, error) {
	const query = `
		SELECT id, tasks, status, output_count, error, started_at, finished_at
		FROM build_runs ORDER BY started_at DESC LIMIT ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list build runs: %w", err)
	}
	defer rows.Close()

	result := []model.BuildRun{}
	for rows.Next() {
		run, err := scanBuildRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan build run: %w", err)
		}
		result = append(result, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate build runs: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuildRun(s scanner) (*model.BuildRun, error) {
	var (
		run        model.BuildRun
		tasks      string
		status     string
		startedAt  string
		finishedAt sql.NullString
	)

	if err := s.Scan(&run.ID, &tasks, &status, &run.OutputCount, &run.Error, &startedAt, &finishedAt); err != nil {
		return nil, err
	}

	run.Tasks = splitTasks(tasks)
	run.Status = model.BuildStatus(status)

	var err error
	run.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if finishedAt.Valid {
		run.FinishedAt, err = parseTime(finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
	}

	return &run, nil
}

func joinTasks(tasks []model.BuildTask) string {
	parts := make([]string, len(tasks))
	for i, t := range tasks {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

func splitTasks(s string) []model.BuildTask {
	tasks := []model.BuildTask{}
	for _, part := range strings.Split(s, ",") {
		if part != "" {
			tasks = append(tasks, model.BuildTask(part))
		}
	}
	return tasks
}

// formatTime stores times in UTC with fixed-width fractional seconds so that
// lexical ordering of the column matches chronological ordering.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05.000000000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
