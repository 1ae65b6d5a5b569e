// Package httphandler implements the JSON REST API driving adapter.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/ericfisherdev/antigravity/internal/application"
	"github.com/ericfisherdev/antigravity/internal/domain/model"
)

const maxBodyBytes = 64 << 10

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	keys   *application.KeyRegistry
	jobs   *application.JobService
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(keys *application.KeyRegistry, jobs *application.JobService, logger *slog.Logger) *Handler {
	return &Handler{
		keys:   keys,
		jobs:   jobs,
		logger: logger,
	}
}

// RegisterAPIRoutes registers all /api/v1 routes on mux. Mutating routes only
// accept requests declaring a JSON body.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.HandleFunc("GET /api/v1/keys", h.ListKeys)
	mux.HandleFunc("POST /api/v1/keys", requireJSON(h.AddKey))
	mux.HandleFunc("DELETE /api/v1/keys/{id}", requireJSON(h.RemoveKey))
	mux.HandleFunc("POST /api/v1/keys/{id}/activate", requireJSON(h.ActivateKey))

	mux.HandleFunc("GET /api/v1/jobs", h.ListJobs)
	mux.HandleFunc("POST /api/v1/jobs", requireJSON(h.SubmitJob))
	mux.HandleFunc("GET /api/v1/jobs/{id}", h.GetJob)
	mux.HandleFunc("POST /api/v1/jobs/{id}/cancel", requireJSON(h.CancelJob))
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListKeys returns all credentials with masked secrets.
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	creds, err := h.keys.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list credentials", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponses(creds))
}

// AddKey adds a credential and returns the updated collection.
func (h *Handler) AddKey(w http.ResponseWriter, r *http.Request) {
	var req AddCredentialRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	creds, err := h.keys.Add(r.Context(), model.CredentialInput{
		Provider: req.Provider,
		Name:     req.Name,
		Secret:   req.Key,
	})
	if err != nil {
		h.writeServiceError(w, "failed to add credential", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCredentialResponses(creds))
}

// RemoveKey deletes a credential. Unknown IDs are not an error.
func (h *Handler) RemoveKey(w http.ResponseWriter, r *http.Request) {
	creds, err := h.keys.Remove(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "failed to remove credential", err)
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponses(creds))
}

// ActivateKey makes the given credential the only active one. Unknown IDs get
// a 404 and leave the collection untouched.
func (h *Handler) ActivateKey(w http.ResponseWriter, r *http.Request) {
	creds, err := h.keys.ActivateExisting(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "failed to activate credential", err)
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponses(creds))
}

// ListJobs returns recent generation jobs, newest first. ?limit= caps the count.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	jobs, err := h.jobs.List(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, "failed to list jobs", err)
		return
	}

	writeJSON(w, http.StatusOK, lo.Map(jobs, func(j model.Job, _ int) JobResponse { return toJobResponse(j) }))
}

// SubmitJob validates a generation request and queues a job.
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req model.GenerationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.jobs.Submit(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "failed to submit job", err)
		return
	}

	writeJSON(w, http.StatusAccepted, toJobResponse(job))
}

// GetJob returns one job's status.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "failed to get job", err)
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(job))
}

// CancelJob cancels a queued or running job.
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "failed to cancel job", err)
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(job))
}

// writeServiceError maps application errors to HTTP status codes. Unexpected
// errors are logged and reported as 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, msg string, err error) {
	var verr *application.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Fields: verr.Fields})
	case errors.Is(err, application.ErrCredentialNotFound):
		writeError(w, http.StatusNotFound, "credential not found")
	case errors.Is(err, application.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, application.ErrJobFinished):
		writeError(w, http.StatusConflict, "job already finished")
	case errors.Is(err, application.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, "generation queue is full")
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
