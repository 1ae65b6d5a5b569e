package driven

import (
	"context"

	"github.com/ericfisherdev/antigravity/internal/domain/model"
)

// JobStore defines the driven port for generation job persistence.
type JobStore interface {
	// Create inserts a new job.
	Create(ctx context.Context, job model.Job) error

	// Update replaces the mutable state (status, progress, message, result,
	// error, updated_at) of an existing job.
	Update(ctx context.Context, job model.Job) error

	// Get returns the job with the given ID, or nil if it does not exist.
	Get(ctx context.Context, id string) (*model.Job, error)

	// List returns the most recently created jobs first, at most limit rows.
	List(ctx context.Context, limit int) ([]model.Job, error)

	// ListByStatus returns all jobs in any of the given states, oldest first.
	ListByStatus(ctx context.Context, statuses ...model.JobStatus) ([]model.Job, error)
}
