package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/antigravity/internal/domain/model"
	"github.com/ericfisherdev/antigravity/internal/domain/port/driven"
)

var (
	// ErrJobNotFound is returned when no job exists for the given ID.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobFinished is returned when cancelling a job that already reached a terminal state.
	ErrJobFinished = errors.New("job already finished")
	// ErrQueueFull is returned when the worker queue cannot accept another job.
	ErrQueueFull = errors.New("generation queue is full")
)

const (
	resolveTimeout      = 5 * time.Second
	interruptedRestart  = "interrupted by restart"
	interruptedShutdown = "interrupted by shutdown"
)

// ActiveCredentialSource provides the credential new jobs are attributed to.
type ActiveCredentialSource interface {
	Active(ctx context.Context) (model.Credential, bool, error)
}

var _ ActiveCredentialSource = (*KeyRegistry)(nil)

// JobServiceConfig holds the tunables of the simulated generation pipeline.
type JobServiceConfig struct {
	Duration  time.Duration // Total simulated run time of one job.
	ResultURL string        // Output reference every completed job reports.
	QueueSize int
}

// runningJob tracks the cancellation handle of the job the worker is executing.
type runningJob struct {
	cancel    context.CancelFunc
	cancelled bool
}

// JobService accepts generation requests and runs them one at a time on a
// background worker. Generation is simulated: the worker walks the pipeline
// stages over a fixed duration and always succeeds with ResultURL unless the
// job is cancelled or the service shuts down.
type JobService struct {
	store    driven.JobStore
	keys     ActiveCredentialSource
	resolver driven.SourceResolver
	cfg      JobServiceConfig
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	queue    chan string

	mu      sync.Mutex
	running map[string]*runningJob
}

// NewJobService creates a JobService. resolver may be nil to skip source
// metadata lookup.
func NewJobService(
	store driven.JobStore,
	keys ActiveCredentialSource,
	resolver driven.SourceResolver,
	cfg JobServiceConfig,
	logger *slog.Logger,
) *JobService {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	return &JobService{
		store:    store,
		keys:     keys,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
		queue:    make(chan string, cfg.QueueSize),
		running:  make(map[string]*runningJob),
	}
}

// RecoverInterrupted marks jobs left queued or running by a previous process
// as failed. Call it once before Start.
func (s *JobService) RecoverInterrupted(ctx context.Context) (int, error) {
	stale, err := s.store.ListByStatus(ctx, model.JobStatusQueued, model.JobStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("list interrupted jobs: %w", err)
	}

	for _, job := range stale {
		job.Status = model.JobStatusFailed
		job.Error = interruptedRestart
		job.Message = "Error occurred"
		job.UpdatedAt = s.now().UTC()
		if err := s.store.Update(ctx, job); err != nil {
			return 0, fmt.Errorf("fail interrupted job %s: %w", job.ID, err)
		}
	}
	return len(stale), nil
}

// Submit validates req, records a queued job and hands it to the worker.
// Invalid input returns a *ValidationError and creates nothing.
func (s *JobService) Submit(ctx context.Context, req model.GenerationRequest) (model.Job, error) {
	req.SourceURL = strings.TrimSpace(req.SourceURL)
	req.StylePrompt = strings.TrimSpace(req.StylePrompt)
	if err := validateStruct(req); err != nil {
		return model.Job{}, err
	}
	if req.Mode == "" {
		req.Mode = model.GenerationModeAvatar
	}
	if req.VoiceModel == "" {
		req.VoiceModel = model.VoiceModelGemini
	}

	var credentialID string
	if active, ok, err := s.keys.Active(ctx); err != nil {
		return model.Job{}, err
	} else if ok {
		credentialID = active.ID
	}

	now := s.now().UTC()
	job := model.Job{
		ID:           s.newID(),
		SourceURL:    req.SourceURL,
		SourceTitle:  s.resolveTitle(ctx, req.SourceURL),
		Mode:         req.Mode,
		VoiceModel:   req.VoiceModel,
		StylePrompt:  req.StylePrompt,
		CredentialID: credentialID,
		Status:       model.JobStatusQueued,
		Message:      "Queued",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, job); err != nil {
		return model.Job{}, err
	}

	select {
	case s.queue <- job.ID:
	default:
		job.Status = model.JobStatusFailed
		job.Error = ErrQueueFull.Error()
		job.Message = "Error occurred"
		job.UpdatedAt = s.now().UTC()
		if err := s.store.Update(ctx, job); err != nil {
			s.logger.Error("failed to mark rejected job", "job_id", job.ID, "error", err)
		}
		return job, ErrQueueFull
	}

	s.logger.Info("generation job queued",
		"job_id", job.ID,
		"mode", job.Mode,
		"voice_model", job.VoiceModel,
		"has_credential", credentialID != "",
	)
	return job, nil
}

// Get returns the job with the given ID or ErrJobNotFound.
func (s *JobService) Get(ctx context.Context, id string) (model.Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Job{}, err
	}
	if job == nil {
		return model.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return *job, nil
}

// List returns the most recent jobs, newest first.
func (s *JobService) List(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.List(ctx, limit)
}

// Cancel stops a queued or running job. Cancelling a finished job returns
// ErrJobFinished.
func (s *JobService) Cancel(ctx context.Context, id string) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.Get(ctx, id)
	if err != nil {
		return model.Job{}, err
	}
	if !job.Status.CanTransitionTo(model.JobStatusCancelled) {
		return job, ErrJobFinished
	}

	if rj, ok := s.running[id]; ok {
		rj.cancelled = true
		rj.cancel()
	}

	job.Status = model.JobStatusCancelled
	job.Message = "Cancelled"
	job.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, job); err != nil {
		return model.Job{}, err
	}

	s.logger.Info("generation job cancelled", "job_id", id)
	return job, nil
}

// Start runs the worker loop until ctx is cancelled.
func (s *JobService) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("job worker stopped")
			return
		case id := <-s.queue:
			s.run(ctx, id)
		}
	}
}

func (s *JobService) run(ctx context.Context, id string) {
	job, jobCtx, ok := s.begin(ctx, id)
	if !ok {
		return
	}
	defer s.finish(id)

	stages := model.StagesFor(job.Mode)
	step := s.cfg.Duration / time.Duration(len(stages))

	for _, stage := range stages {
		job.Progress = stage.Progress
		job.Message = stage.Message
		if !s.save(ctx, &job) {
			return
		}

		timer := time.NewTimer(step)
		select {
		case <-jobCtx.Done():
			timer.Stop()
			s.abort(ctx, &job)
			return
		case <-timer.C:
		}
	}

	job.Status = model.JobStatusCompleted
	job.Progress = 100
	job.Message = "Done"
	job.ResultURL = s.cfg.ResultURL
	if s.save(ctx, &job) {
		s.logger.Info("generation job completed", "job_id", id, "result_url", job.ResultURL)
	}
}

// begin moves a queued job to running and registers its cancel handle.
// Jobs cancelled while waiting in the queue are skipped.
func (s *JobService) begin(ctx context.Context, id string) (model.Job, context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.Get(ctx, id)
	if err != nil {
		s.logger.Error("failed to load queued job", "job_id", id, "error", err)
		return model.Job{}, nil, false
	}
	if job.Status != model.JobStatusQueued {
		return model.Job{}, nil, false
	}

	job.Status = model.JobStatusRunning
	job.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, job); err != nil {
		s.logger.Error("failed to start job", "job_id", id, "error", err)
		return model.Job{}, nil, false
	}

	jobCtx, cancel := context.WithCancel(ctx)
	s.running[id] = &runningJob{cancel: cancel}
	return job, jobCtx, true
}

func (s *JobService) finish(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rj, ok := s.running[id]; ok {
		rj.cancel()
		delete(s.running, id)
	}
}

// save persists job progress unless the job was cancelled meanwhile.
func (s *JobService) save(ctx context.Context, job *model.Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rj, ok := s.running[job.ID]; ok && rj.cancelled {
		return false
	}

	job.UpdatedAt = s.now().UTC()
	if err := s.store.Update(context.WithoutCancel(ctx), *job); err != nil {
		s.logger.Error("failed to save job progress", "job_id", job.ID, "error", err)
		return false
	}
	return true
}

// abort records a shutdown interruption. User cancellations are already
// persisted by Cancel.
func (s *JobService) abort(ctx context.Context, job *model.Job) {
	if ctx.Err() == nil {
		return
	}
	job.Status = model.JobStatusFailed
	job.Error = interruptedShutdown
	job.Message = "Error occurred"
	s.save(ctx, job)
}

func (s *JobService) resolveTitle(ctx context.Context, sourceURL string) string {
	if s.resolver == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	info, err := s.resolver.Resolve(ctx, sourceURL)
	if err != nil {
		s.logger.Warn("source metadata lookup failed", "url", sourceURL, "error", err)
		return ""
	}
	return info.Title
}
