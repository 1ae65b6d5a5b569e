// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/antigravity/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/antigravity/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/antigravity/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/antigravity/internal/application"
	"github.com/ericfisherdev/antigravity/internal/domain/model"
)

const recentJobsLimit = 10

// Handler is the web GUI driving adapter that serves HTML via templ components.
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

// Landing renders the marketing page.
func (h *Handler) Landing(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, templates.Bare("Antigravity", pages.Landing(pathKeys)))
}

// KeysPage renders the key management page.
func (h *Handler) KeysPage(w http.ResponseWriter, r *http.Request) {
	h.renderKeys(w, r, http.StatusOK, popFlash(w, r), vm.KeyFormViewModel{}, false)
}

// AddKey handles the add-key form. Validation failures re-render the page
// with inline messages; success redirects back to the list.
func (h *Handler) AddKey(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	in := model.CredentialInput{
		Provider: r.PostFormValue("provider"),
		Name:     r.PostFormValue("name"),
		Secret:   r.PostFormValue("key"),
	}

	if _, err := h.keys.Add(r.Context(), in); err != nil {
		var verr *application.ValidationError
		if errors.As(err, &verr) {
			form := vm.KeyFormViewModel{Provider: in.Provider, Name: in.Name, Errors: verr.Fields}
			h.renderKeys(w, r, http.StatusUnprocessableEntity, nil, form, true)
			return
		}
		h.serverError(w, "failed to add credential", err)
		return
	}

	h.redirectWithFlash(w, r, pathKeys, "success", flashKeyAdded)
}

// RemoveKey deletes a credential and redirects back to the list.
func (h *Handler) RemoveKey(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	if _, err := h.keys.Remove(r.Context(), r.PathValue("id")); err != nil {
		h.serverError(w, "failed to remove credential", err)
		return
	}

	h.redirectWithFlash(w, r, pathKeys, "success", flashKeyRemoved)
}

// ActivateKey switches the active credential and redirects back to the list.
func (h *Handler) ActivateKey(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	if _, err := h.keys.Activate(r.Context(), r.PathValue("id")); err != nil {
		h.serverError(w, "failed to activate credential", err)
		return
	}

	h.redirectWithFlash(w, r, pathKeys, "success", flashKeyActivated)
}

// CreatePage renders the generation form.
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	h.renderCreate(w, r, http.StatusOK, popFlash(w, r), model.GenerationRequest{}, nil)
}

// SubmitJob handles the generation form. An empty source reference re-renders
// the form with a message and queues nothing.
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	req := model.GenerationRequest{
		SourceURL:   r.PostFormValue("url"),
		Mode:        model.GenerationMode(r.PostFormValue("mode")),
		VoiceModel:  model.VoiceModel(r.PostFormValue("voice_model")),
		StylePrompt: r.PostFormValue("personality"),
	}

	job, err := h.jobs.Submit(r.Context(), req)
	if err != nil {
		var verr *application.ValidationError
		switch {
		case errors.As(err, &verr):
			h.renderCreate(w, r, http.StatusUnprocessableEntity, nil, req, verr.Fields)
		case errors.Is(err, application.ErrQueueFull):
			flash := &vm.FlashViewModel{Kind: "error", Message: "The generation queue is full. Try again shortly."}
			h.renderCreate(w, r, http.StatusServiceUnavailable, flash, req, nil)
		default:
			h.serverError(w, "failed to submit job", err)
		}
		return
	}

	h.redirectWithFlash(w, r, jobPath(job.ID), "success", flashJobQueued)
}

// JobPage renders a job's status. The page refreshes itself until the job
// reaches a terminal state.
func (h *Handler) JobPage(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, application.ErrJobNotFound) {
			http.NotFound(w, r)
			return
		}
		h.serverError(w, "failed to get job", err)
		return
	}

	flash := popFlash(w, r)
	if flash == nil && job.Status == model.JobStatusCompleted {
		flash = &vm.FlashViewModel{Kind: "success", Message: flashJobCompleted}
	}

	shell := vm.ShellViewModel{
		Title: "Generation job",
		Nav:   navItems(pathCreate),
		Flash: flash,
	}
	if !job.Status.IsTerminal() {
		shell.RefreshSeconds = 1
	}

	page := vm.JobPageViewModel{CSRFToken: csrfToken(w, r), Job: toJobViewModel(job)}
	h.render(w, r, http.StatusOK, templates.Layout(shell, pages.Job(page)))
}

// CancelJob cancels a queued or running job and returns to its status page.
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	id := r.PathValue("id")
	_, err := h.jobs.Cancel(r.Context(), id)
	switch {
	case err == nil:
		h.redirectWithFlash(w, r, jobPath(id), "success", flashJobCancelled)
	case errors.Is(err, application.ErrJobNotFound):
		http.NotFound(w, r)
	case errors.Is(err, application.ErrJobFinished):
		h.redirectWithFlash(w, r, jobPath(id), "error", "Job already finished")
	default:
		h.serverError(w, "failed to cancel job", err)
	}
}

func (h *Handler) renderKeys(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	flash *vm.FlashViewModel,
	form vm.KeyFormViewModel,
	showForm bool,
) {
	creds, err := h.keys.List(r.Context())
	if err != nil {
		h.serverError(w, "failed to list credentials", err)
		return
	}

	page := vm.KeysPageViewModel{
		CSRFToken:   csrfToken(w, r),
		Credentials: toCredentialViewModels(creds),
		Form:        form,
		AddURL:      pathKeys,
		ShowForm:    showForm || len(creds) == 0,
	}
	shell := vm.ShellViewModel{Title: "The Brain", Nav: navItems(pathKeys), Flash: flash}
	h.render(w, r, status, templates.Layout(shell, pages.Keys(page)))
}

func (h *Handler) renderCreate(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	flash *vm.FlashViewModel,
	req model.GenerationRequest,
	errs map[string]string,
) {
	ctx := r.Context()

	active, ok, err := h.keys.Active(ctx)
	if err != nil {
		h.serverError(w, "failed to load active credential", err)
		return
	}

	jobs, err := h.jobs.List(ctx, recentJobsLimit)
	if err != nil {
		h.serverError(w, "failed to list jobs", err)
		return
	}

	page := vm.CreatePageViewModel{
		CSRFToken:  csrfToken(w, r),
		Form:       toGenerationFormViewModel(req, errs),
		SubmitURL:  pathCreate,
		RecentJobs: toJobViewModels(jobs),
	}
	if ok {
		page.ActiveCredential = active.Name
	}

	shell := vm.ShellViewModel{Title: "Create Video", Nav: navItems(pathCreate), Flash: flash}
	h.render(w, r, status, templates.Layout(shell, pages.Create(page)))
}

// render writes c with status. Nothing is sent if rendering fails.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		h.serverError(w, "failed to render page", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	setFlash(w, r, kind, message)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) serverError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func jobPath(id string) string {
	return "/app/jobs/" + url.PathEscape(id)
}
