// Package config loads application configuration from environment variables.
// A .env file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload" // Populate env from .env before Load reads it.

	"github.com/ericfisherdev/antigravity/internal/domain/model"
)

// DefaultResultURL is the constant output every simulated generation job reports.
const DefaultResultURL = "https://assets.mixkit.co/videos/preview/mixkit-futuristic-robot-arm-working-on-a-screen-13835-large.mp4"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr       string
	DBPath           string
	JobDuration      time.Duration
	ResultURL        string
	QueueSize        int
	ActivationPolicy model.ActivationPolicy
	OEmbedEndpoint   string
}

// HasSourceResolver returns true when an oEmbed endpoint is configured.
func (c *Config) HasSourceResolver() bool {
	return c.OEmbedEndpoint != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional: ANTIGRAVITY_LISTEN_ADDR (127.0.0.1:8080),
// ANTIGRAVITY_DB_PATH (antigravity.db), ANTIGRAVITY_JOB_DURATION (3s),
// ANTIGRAVITY_RESULT_URL, ANTIGRAVITY_QUEUE_SIZE (16),
// ANTIGRAVITY_ACTIVATION_POLICY (none|promote-first) and
// ANTIGRAVITY_OEMBED_ENDPOINT (empty disables source lookup).
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("ANTIGRAVITY_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "antigravity.db"
	if v, ok := os.LookupEnv("ANTIGRAVITY_DB_PATH"); ok {
		dbPath = v
	}

	jobDuration := 3 * time.Second
	if v, ok := os.LookupEnv("ANTIGRAVITY_JOB_DURATION"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("ANTIGRAVITY_JOB_DURATION has invalid duration %q: %w", v, err)
		}
		if parsed < 0 {
			return nil, fmt.Errorf("ANTIGRAVITY_JOB_DURATION must not be negative, got %q", v)
		}
		jobDuration = parsed
	}

	resultURL := DefaultResultURL
	if v, ok := os.LookupEnv("ANTIGRAVITY_RESULT_URL"); ok && v != "" {
		resultURL = v
	}

	queueSize := 16
	if v, ok := os.LookupEnv("ANTIGRAVITY_QUEUE_SIZE"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("ANTIGRAVITY_QUEUE_SIZE must be a positive integer, got %q", v)
		}
		queueSize = parsed
	}

	policy := model.ActivationPolicyNone
	if v, ok := os.LookupEnv("ANTIGRAVITY_ACTIVATION_POLICY"); ok && v != "" {
		policy = model.ActivationPolicy(v)
		if !policy.Valid() {
			return nil, fmt.Errorf("ANTIGRAVITY_ACTIVATION_POLICY must be %q or %q, got %q",
				model.ActivationPolicyNone, model.ActivationPolicyPromoteFirst, v)
		}
	}

	return &Config{
		ListenAddr:       listenAddr,
		DBPath:           dbPath,
		JobDuration:      jobDuration,
		ResultURL:        resultURL,
		QueueSize:        queueSize,
		ActivationPolicy: policy,
		OEmbedEndpoint:   os.Getenv("ANTIGRAVITY_OEMBED_ENDPOINT"),
	}, nil
}
