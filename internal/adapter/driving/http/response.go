package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/ericfisherdev/antigravity/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// CredentialResponse is the JSON representation of a credential. The secret
// is only ever exposed masked.
type CredentialResponse struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	Name      string `json:"name"`
	MaskedKey string `json:"masked_key"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// AddCredentialRequest is the JSON body for the add credential endpoint.
type AddCredentialRequest struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
	Key      string `json:"key"`
}

// JobResponse is the JSON representation of a generation job.
type JobResponse struct {
	ID           string `json:"id"`
	SourceURL    string `json:"url"`
	SourceTitle  string `json:"source_title,omitempty"`
	Mode         string `json:"mode"`
	VoiceModel   string `json:"voice_model"`
	StylePrompt  string `json:"personality,omitempty"`
	CredentialID string `json:"credential_id,omitempty"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	Message      string `json:"message"`
	ResultURL    string `json:"result_url,omitempty"`
	Error        string `json:"error,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toCredentialResponse converts a domain Credential to its masked JSON representation.
func toCredentialResponse(c model.Credential) CredentialResponse {
	return CredentialResponse{
		ID:        c.ID,
		Provider:  c.Provider,
		Name:      c.Name,
		MaskedKey: c.MaskedSecret(),
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt.Time().Format(time.RFC3339),
	}
}

func toCredentialResponses(creds []model.Credential) []CredentialResponse {
	resp := lo.Map(creds, func(c model.Credential, _ int) CredentialResponse { return toCredentialResponse(c) })
	if resp == nil {
		resp = []CredentialResponse{}
	}
	return resp
}

// toJobResponse converts a domain Job to its JSON representation.
func toJobResponse(j model.Job) JobResponse {
	return JobResponse{
		ID:           j.ID,
		SourceURL:    j.SourceURL,
		SourceTitle:  j.SourceTitle,
		Mode:         string(j.Mode),
		VoiceModel:   string(j.VoiceModel),
		StylePrompt:  j.StylePrompt,
		CredentialID: j.CredentialID,
		Status:       string(j.Status),
		Progress:     j.Progress,
		Message:      j.Message,
		ResultURL:    j.ResultURL,
		Error:        j.Error,
		CreatedAt:    j.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    j.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
