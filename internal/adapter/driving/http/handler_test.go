package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/antigravity/internal/adapter/driving/http"
	"github.com/ericfisherdev/antigravity/internal/application"
	"github.com/ericfisherdev/antigravity/internal/domain/model"
)

// --- Mock implementations ---

type mockKVStore struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
}

func (m *mockKVStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockKVStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *mockKVStore) Update(_ context.Context, key string, fn func(string, bool) (string, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	current, ok := m.values[key]
	next, err := fn(current, ok)
	if err != nil {
		return err
	}
	m.values[key] = next
	return nil
}

type mockJobStore struct {
	mu    sync.Mutex
	jobs  map[string]model.Job
	order []string
}

func (m *mockJobStore) Create(_ context.Context, job model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)
	return nil
}

func (m *mockJobStore) Update(_ context.Context, job model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobStore) Get(_ context.Context, id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	return &job, nil
}

func (m *mockJobStore) List(_ context.Context, limit int) ([]model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := []model.Job{}
	for i := len(m.order) - 1; i >= 0 && len(jobs) < limit; i-- {
		jobs = append(jobs, m.jobs[m.order[i]])
	}
	return jobs, nil
}

func (m *mockJobStore) ListByStatus(_ context.Context, statuses ...model.JobStatus) ([]model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []model.Job
	for _, id := range m.order {
		if slices.Contains(statuses, m.jobs[id].Status) {
			jobs = append(jobs, m.jobs[id])
		}
	}
	return jobs, nil
}

// --- Test helpers ---

type testEnv struct {
	kv   *mockKVStore
	jobs *mockJobStore
	keys *application.KeyRegistry
	svc  *application.JobService
	mux  http.Handler
}

func newTestEnv(t *testing.T, queueSize int) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env := &testEnv{
		kv:   &mockKVStore{values: make(map[string]string)},
		jobs: &mockJobStore{jobs: make(map[string]model.Job)},
	}
	env.keys = application.NewKeyRegistry(env.kv, model.ActivationPolicyNone, logger)
	env.svc = application.NewJobService(env.jobs, env.keys, nil, application.JobServiceConfig{
		Duration:  time.Millisecond,
		ResultURL: "https://assets.example.com/result.mp4",
		QueueSize: queueSize,
	}, logger)

	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, httphandler.NewHandler(env.keys, env.svc, logger))
	env.mux = httphandler.ApplyMiddleware(mux, logger)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// --- Tests ---

func TestHealth(t *testing.T) {
	env := newTestEnv(t, 4)

	rec := env.do(t, http.MethodGet, "/api/v1/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decode[httphandler.HealthResponse](t, rec).Status)
}

func TestListKeys_Empty(t *testing.T) {
	env := newTestEnv(t, 4)

	rec := env.do(t, http.MethodGet, "/api/v1/keys", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListKeys_StoreError(t *testing.T) {
	env := newTestEnv(t, 4)
	env.kv.getErr = errors.New("disk gone")

	rec := env.do(t, http.MethodGet, "/api/v1/keys", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk gone")
}

func TestAddKey_MasksSecret(t *testing.T) {
	env := newTestEnv(t, 4)

	rec := env.do(t, http.MethodPost, "/api/v1/keys",
		`{"name":"Primary","key":"sk-1234567890abcdefXYZW"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sk-1234567890abcdefXYZW")

	creds := decode[[]httphandler.CredentialResponse](t, rec)
	require.Len(t, creds, 1)
	assert.Equal(t, "Primary", creds[0].Name)
	assert.Equal(t, model.DefaultProvider, creds[0].Provider)
	assert.Equal(t, "sk-12345"+strings.Repeat("*", 16)+"XYZW", creds[0].MaskedKey)
	assert.True(t, creds[0].IsActive)
}

func TestAddKey_Validation(t *testing.T) {
	env := newTestEnv(t, 4)

	rec := env.do(t, http.MethodPost, "/api/v1/keys", `{"name":"   ","key":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Contains(t, body["error"], "API key")
	assert.Contains(t, body["fields"], "name")
	assert.Contains(t, body["fields"], "key")
}

func TestAddKey_InvalidBody(t *testing.T) {
	env := newTestEnv(t, 4)

	rec := env.do(t, http.MethodPost, "/api/v1/keys", `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestActivateKey(t *testing.T) {
	env := newTestEnv(t, 4)
	ctx := context.Background()
	_, err := env.keys.Add(ctx, model.CredentialInput{Name: "A", Secret: "secret-a"})
	require.NoError(t, err)
	creds, err := env.keys.Add(ctx, model.CredentialInput{Name: "B", Secret: "secret-b"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/v1/keys/"+creds[1].ID+"/activate", "")

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]httphandler.CredentialResponse](t, rec)
	require.Len(t, got, 2)
	assert.False(t, got[0].IsActive)
	assert.True(t, got[1].IsActive)
}

func TestActivateKey_UnknownLeavesCollectionUntouched(t *testing.T) {
	env := newTestEnv(t, 4)
	ctx := context.Background()
	_, err := env.keys.Add(ctx, model.CredentialInput{Name: "A", Secret: "secret-a"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/v1/keys/nope/activate", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	_, ok, err := env.keys.Active(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "existing active credential must survive an unknown activate")
}

func TestActivateKey_RemovedByOtherWriter(t *testing.T) {
	env := newTestEnv(t, 4)
	ctx := context.Background()
	_, err := env.keys.Add(ctx, model.CredentialInput{Name: "A", Secret: "secret-a"})
	require.NoError(t, err)
	creds, err := env.keys.Add(ctx, model.CredentialInput{Name: "B", Secret: "secret-b"})
	require.NoError(t, err)
	idB := creds[1].ID

	// A second registry on the same store, as keyctl would be.
	other := application.NewKeyRegistry(env.kv, model.ActivationPolicyNone, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err = other.Remove(ctx, idB)
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/v1/keys/"+idB+"/activate", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	stored, err := other.Load(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].IsActive, "the remaining key keeps its active flag")
}

func TestMutatingRoutes_RequireJSONContentType(t *testing.T) {
	env := newTestEnv(t, 4)
	ctx := context.Background()
	_, err := env.keys.Add(ctx, model.CredentialInput{Name: "A", Secret: "secret-a"})
	require.NoError(t, err)
	creds, err := env.keys.Add(ctx, model.CredentialInput{Name: "B", Secret: "secret-b"})
	require.NoError(t, err)
	idA, idB := creds[0].ID, creds[1].ID

	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
	}{
		{"activate via form post", http.MethodPost, "/api/v1/keys/" + idB + "/activate", "application/x-www-form-urlencoded"},
		{"activate via text/plain", http.MethodPost, "/api/v1/keys/" + idB + "/activate", "text/plain"},
		{"activate without content type", http.MethodPost, "/api/v1/keys/" + idB + "/activate", ""},
		{"add via multipart", http.MethodPost, "/api/v1/keys", "multipart/form-data; boundary=x"},
		{"remove via text/plain", http.MethodDelete, "/api/v1/keys/" + idA, "text/plain"},
		{"submit job via form post", http.MethodPost, "/api/v1/jobs", "application/x-www-form-urlencoded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{"name":"C","key":"secret-c"}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			env.mux.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		})
	}

	after, err := env.keys.Load(ctx)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.True(t, after[0].IsActive, "active key unchanged")
	assert.False(t, after[1].IsActive)
	assert.Empty(t, env.jobs.order)
}

func TestMutatingRoutes_AcceptJSONWithCharset(t *testing.T) {
	env := newTestEnv(t, 4)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/keys", strings.NewReader(`{"name":"A","key":"secret-a"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRemoveKey(t *testing.T) {
	env := newTestEnv(t, 4)
	creds, err := env.keys.Add(context.Background(), model.CredentialInput{Name: "A", Secret: "secret-a"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodDelete, "/api/v1/keys/"+creds[0].ID, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRemoveKey_UnknownIsNoop(t *testing.T) {
	env := newTestEnv(t, 4)

	rec := env.do(t, http.MethodDelete, "/api/v1/keys/missing", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitJob(t *testing.T) {
	env := newTestEnv(t, 4)
	creds, err := env.keys.Add(context.Background(), model.CredentialInput{Name: "A", Secret: "secret-a"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/v1/jobs",
		`{"url":" https://youtu.be/abc ","mode":"voice","voice_model":"elevenlabs","personality":"dry wit"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	job := decode[httphandler.JobResponse](t, rec)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "https://youtu.be/abc", job.SourceURL)
	assert.Equal(t, "voice", job.Mode)
	assert.Equal(t, "elevenlabs", job.VoiceModel)
	assert.Equal(t, "queued", job.Status)
	assert.Equal(t, creds[0].ID, job.CredentialID)
}

func TestSubmitJob_Validation(t *testing.T) {
	env := newTestEnv(t, 4)

	rec := env.do(t, http.MethodPost, "/api/v1/jobs", `{"url":"","mode":"hologram"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Contains(t, body["fields"], "url")
	assert.Contains(t, body["fields"], "mode")
}

func TestSubmitJob_QueueFull(t *testing.T) {
	env := newTestEnv(t, 1)

	first := env.do(t, http.MethodPost, "/api/v1/jobs", `{"url":"https://youtu.be/one"}`)
	require.Equal(t, http.StatusAccepted, first.Code)

	rec := env.do(t, http.MethodPost, "/api/v1/jobs", `{"url":"https://youtu.be/two"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetJob(t *testing.T) {
	env := newTestEnv(t, 4)
	job, err := env.svc.Submit(context.Background(), model.GenerationRequest{SourceURL: "https://youtu.be/abc"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/v1/jobs/"+job.ID, "")

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[httphandler.JobResponse](t, rec)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "avatar", got.Mode)
	assert.Equal(t, "gemini", got.VoiceModel)
}

func TestGetJob_NotFound(t *testing.T) {
	env := newTestEnv(t, 4)

	rec := env.do(t, http.MethodGet, "/api/v1/jobs/missing", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJobs(t *testing.T) {
	env := newTestEnv(t, 4)
	ctx := context.Background()
	for _, u := range []string{"https://youtu.be/1", "https://youtu.be/2", "https://youtu.be/3"} {
		_, err := env.svc.Submit(ctx, model.GenerationRequest{SourceURL: u})
		require.NoError(t, err)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/jobs?limit=2", "")

	require.Equal(t, http.StatusOK, rec.Code)
	jobs := decode[[]httphandler.JobResponse](t, rec)
	require.Len(t, jobs, 2)
	assert.Equal(t, "https://youtu.be/3", jobs[0].SourceURL)
}

func TestListJobs_InvalidLimit(t *testing.T) {
	env := newTestEnv(t, 4)

	for _, limit := range []string{"0", "abc", "500"} {
		rec := env.do(t, http.MethodGet, "/api/v1/jobs?limit="+limit, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestCancelJob(t *testing.T) {
	env := newTestEnv(t, 4)
	job, err := env.svc.Submit(context.Background(), model.GenerationRequest{SourceURL: "https://youtu.be/abc"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/v1/jobs/"+job.ID+"/cancel", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[httphandler.JobResponse](t, rec).Status)

	again := env.do(t, http.MethodPost, "/api/v1/jobs/"+job.ID+"/cancel", "")
	assert.Equal(t, http.StatusConflict, again.Code)
}

func TestCancelJob_NotFound(t *testing.T) {
	env := newTestEnv(t, 4)

	rec := env.do(t, http.MethodPost, "/api/v1/jobs/missing/cancel", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	httphandler.ApplyMiddleware(panicking, logger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestMiddleware_SecureHeaders(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := httphandler.ApplyMiddleware(ok, logger)

	page := httptest.NewRecorder()
	h.ServeHTTP(page, httptest.NewRequest(http.MethodGet, "/api/v1/keys", nil))
	assert.Equal(t, "no-store", page.Header().Get("Cache-Control"))
	assert.Equal(t, "nosniff", page.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", page.Header().Get("X-Frame-Options"))

	asset := httptest.NewRecorder()
	h.ServeHTTP(asset, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	assert.Empty(t, asset.Header().Get("Cache-Control"))
	assert.Equal(t, "nosniff", asset.Header().Get("X-Content-Type-Options"))
}
