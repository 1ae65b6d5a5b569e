package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{"typical key", "sk-abc123456789", "sk-abc12****************6789"},
		{"long key", "AIzaSyA1234567890abcdefXYZ", "AIzaSyA1****************fXYZ"},
		{"exactly twelve", "123456789012", "****************"},
		{"short", "abc", "****************"},
		{"empty", "", "****************"},
		{"multibyte", "ก็ได้ครับผมมมมมมมม", "ก็ได้ครั****************มมมม"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskSecret(tt.secret))
		})
	}
}

func TestCredential_MaskedSecret(t *testing.T) {
	c := Credential{Secret: "sk-def000000000"}
	assert.Equal(t, "sk-def00****************0000", c.MaskedSecret())
}

func TestUnixMillis_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 10, 19, 8, 30, 0, 123_000_000, time.UTC)
	assert.Equal(t, ts, NewUnixMillis(ts).Time())
}

func TestActivationPolicy_Valid(t *testing.T) {
	assert.True(t, ActivationPolicyNone.Valid())
	assert.True(t, ActivationPolicyPromoteFirst.Valid())
	assert.False(t, ActivationPolicy("").Valid())
	assert.False(t, ActivationPolicy("promote-last").Valid())
}

func TestJobStatus_Transitions(t *testing.T) {
	assert.True(t, JobStatusQueued.CanTransitionTo(JobStatusRunning))
	assert.True(t, JobStatusQueued.CanTransitionTo(JobStatusCancelled))
	assert.True(t, JobStatusRunning.CanTransitionTo(JobStatusCompleted))
	assert.True(t, JobStatusRunning.CanTransitionTo(JobStatusFailed))
	assert.True(t, JobStatusRunning.CanTransitionTo(JobStatusCancelled))

	assert.False(t, JobStatusQueued.CanTransitionTo(JobStatusCompleted))
	for _, terminal := range []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCancelled} {
		assert.True(t, terminal.IsTerminal())
		assert.False(t, terminal.CanTransitionTo(JobStatusRunning))
	}
	assert.False(t, JobStatusRunning.IsTerminal())
}

func TestStagesFor(t *testing.T) {
	assert.Len(t, StagesFor(GenerationModeAvatar), 4)
	assert.Len(t, StagesFor(GenerationModeVoice), 3)
	assert.Equal(t, 70, StagesFor(GenerationModeAvatar)[3].Progress)
}
