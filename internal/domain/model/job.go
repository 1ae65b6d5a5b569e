package model

import "time"

// Job is a single video generation request and its progress.
type Job struct {
	ID           string
	SourceURL    string
	SourceTitle  string
	Mode         GenerationMode
	VoiceModel   VoiceModel
	StylePrompt  string
	CredentialID string // Active credential at submission time; empty if none.
	Status       JobStatus
	Progress     int
	Message      string
	ResultURL    string
	Error        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GenerationRequest holds the generation form input.
type GenerationRequest struct {
	SourceURL   string         `json:"url" validate:"required"`
	Mode        GenerationMode `json:"mode" validate:"omitempty,oneof=avatar voice"`
	VoiceModel  VoiceModel     `json:"voice_model" validate:"omitempty,oneof=gemini elevenlabs"`
	StylePrompt string         `json:"personality" validate:"max=2000"`
}

// JobStage is one simulated step of the generation pipeline.
type JobStage struct {
	Progress int
	Message  string
}

// StagesFor returns the pipeline stages a job in the given mode walks through
// before completion. Voice-only jobs skip rendering.
func StagesFor(mode GenerationMode) []JobStage {
	stages := []JobStage{
		{Progress: 10, Message: "Downloading source"},
		{Progress: 30, Message: "Generating script"},
		{Progress: 50, Message: "Generating voice"},
	}
	if mode != GenerationModeVoice {
		stages = append(stages, JobStage{Progress: 70, Message: "Rendering"})
	}
	return stages
}

// SourceInfo is metadata resolved for a source reference.
type SourceInfo struct {
	Title    string
	Author   string
	Provider string
}
