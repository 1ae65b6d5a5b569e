package model

import (
	"strings"
	"time"
)

// DefaultProvider is the provider label applied when none is supplied.
const DefaultProvider = "OpenAI"

const (
	maskVisiblePrefix = 8
	maskVisibleSuffix = 4
	maskFill          = "****************"
)

// Credential is a named, provider-tagged API key held in the key registry.
// The JSON field names are the persisted storage layout and must not change.
type Credential struct {
	ID        string     `json:"id"`
	Provider  string     `json:"provider"`
	Name      string     `json:"name"`
	Secret    string     `json:"key"`
	IsActive  bool       `json:"isActive"`
	CreatedAt UnixMillis `json:"createdAt"`
}

// MaskedSecret returns the secret with only the first 8 and last 4 characters
// visible. Secrets too short to hide anything are fully masked.
func (c Credential) MaskedSecret() string {
	return MaskSecret(c.Secret)
}

// MaskSecret masks an arbitrary secret value using the credential masking rule.
func MaskSecret(secret string) string {
	runes := []rune(secret)
	if len(runes) <= maskVisiblePrefix+maskVisibleSuffix {
		return maskFill
	}

	var b strings.Builder
	b.WriteString(string(runes[:maskVisiblePrefix]))
	b.WriteString(maskFill)
	b.WriteString(string(runes[len(runes)-maskVisibleSuffix:]))
	return b.String()
}

// CredentialInput holds the user-supplied fields for a new credential.
type CredentialInput struct {
	Provider string `json:"provider"`
	Name     string `json:"name" validate:"required"`
	Secret   string `json:"key" validate:"required"`
}

// ActivationPolicy decides what happens to the active flag when the active
// credential is removed.
type ActivationPolicy string

const (
	// ActivationPolicyNone leaves the collection without an active credential.
	ActivationPolicyNone ActivationPolicy = "none"
	// ActivationPolicyPromoteFirst activates the first remaining credential.
	ActivationPolicyPromoteFirst ActivationPolicy = "promote-first"
)

// Valid reports whether p is a known policy.
func (p ActivationPolicy) Valid() bool {
	return p == ActivationPolicyNone || p == ActivationPolicyPromoteFirst
}

// UnixMillis is a timestamp serialized as integer milliseconds since the epoch.
type UnixMillis int64

// NewUnixMillis converts t to UnixMillis.
func NewUnixMillis(t time.Time) UnixMillis {
	return UnixMillis(t.UnixMilli())
}

// Time converts the timestamp back to a UTC time.Time.
func (m UnixMillis) Time() time.Time {
	return time.UnixMilli(int64(m)).UTC()
}
