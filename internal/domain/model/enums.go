package model

// JobStatus represents the lifecycle state of a generation job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusRunning || next == JobStatusCancelled || next == JobStatusFailed
	case JobStatusRunning:
		return next == JobStatusCompleted || next == JobStatusFailed || next == JobStatusCancelled
	}
	return false
}

// GenerationMode selects what the job produces.
type GenerationMode string

const (
	GenerationModeAvatar GenerationMode = "avatar" // Full avatar video.
	GenerationModeVoice  GenerationMode = "voice"  // Voice-over only.
)

// VoiceModel selects the voice synthesis backend.
type VoiceModel string

const (
	VoiceModelGemini     VoiceModel = "gemini"
	VoiceModelElevenLabs VoiceModel = "elevenlabs"
)

// Label returns the human-readable name shown in the generation form.
func (v VoiceModel) Label() string {
	switch v {
	case VoiceModelGemini:
		return "Gemini Flash (Fast)"
	case VoiceModelElevenLabs:
		return "ElevenLabs (Premium)"
	}
	return string(v)
}

// VoiceModels lists the selectable voice models in display order.
func VoiceModels() []VoiceModel {
	return []VoiceModel{VoiceModelGemini, VoiceModelElevenLabs}
}
