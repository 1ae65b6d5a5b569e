package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/ericfisherdev/antigravity/internal/domain/model"
	"github.com/ericfisherdev/antigravity/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.JobStore = (*JobRepo)(nil)

const jobColumns = `id, source_url, source_title, mode, voice_model, style_prompt, credential_id,
		       status, progress, message, result_url, error, created_at, updated_at`

// JobRepo is the SQLite implementation of the JobStore port interface.
type JobRepo struct {
	db *DB
}

// NewJobRepo creates a new JobRepo backed by the given DB.
func NewJobRepo(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

// Create inserts a new job. Returns an error if a job with the same ID exists.
func (r *JobRepo) Create(ctx context.Context, job model.Job) error {
	const query = `
		INSERT INTO jobs (
			id, source_url, source_title, mode, voice_model, style_prompt, credential_id,
			status, progress, message, result_url, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		job.ID, job.SourceURL, job.SourceTitle, string(job.Mode), string(job.VoiceModel),
		job.StylePrompt, job.CredentialID, string(job.Status), job.Progress, job.Message,
		job.ResultURL, job.Error, formatTime(job.CreatedAt), formatTime(job.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create job %s: %w", job.ID, err)
	}
	return nil
}

// Update writes the mutable state of an existing job.
func (r *JobRepo) Update(ctx context.Context, job model.Job) error {
	const query = `
		UPDATE jobs SET
			source_title = ?, status = ?, progress = ?, message = ?,
			result_url = ?, error = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		job.SourceTitle, string(job.Status), job.Progress, job.Message,
		job.ResultURL, job.Error, formatTime(job.UpdatedAt), job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("job %s not found", job.ID)
	}
	return nil
}

// Get retrieves a job by ID. Returns nil, nil if the job does not exist.
func (r *JobRepo) Get(ctx context.Context, id string) (*model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`

	job, err := scanJob(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// List returns up to limit jobs, newest first.
func (r *JobRepo) List(ctx context.Context, limit int) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC, id DESC LIMIT ?`
	return r.queryJobs(ctx, query, limit)
}

// ListByStatus returns all jobs in any of the given states, oldest first.
func (r *JobRepo) ListByStatus(ctx context.Context, statuses ...model.JobStatus) ([]model.Job, error) {
	if len(statuses) == 0 {
		return []model.Job{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status IN (` + placeholders + `) ORDER BY created_at`
	args := lo.Map(statuses, func(s model.JobStatus, _ int) any { return string(s) })

	return r.queryJobs(ctx, query, args...)
}

func (r *JobRepo) queryJobs(ctx context.Context, query string, args ...any) ([]model.Job, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}

	return jobs, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*model.Job, error) {
	var (
		job                  model.Job
		mode, voice, status  string
		createdAt, updatedAt string
	)

	err := s.Scan(
		&job.ID, &job.SourceURL, &job.SourceTitle, &mode, &voice, &job.StylePrompt, &job.CredentialID,
		&status, &job.Progress, &job.Message, &job.ResultURL, &job.Error, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Mode = model.GenerationMode(mode)
	job.VoiceModel = model.VoiceModel(voice)
	job.Status = model.JobStatus(status)

	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &job, nil
}

// formatTime renders t in a fixed-width UTC layout so lexical order matches
// chronological order.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05.000000000Z",
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
