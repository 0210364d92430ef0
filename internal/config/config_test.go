package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AI_SUGGESTIONS_PER_DAY", "")
	t.Setenv("INVITATION_TTL", "")
	t.Setenv("AUTH_MODE", "")

	cfg := Load()

	assert.Equal(t, "firebase", cfg.AuthMode)
	assert.Equal(t, 1, cfg.SuggestionsPerDay)
	assert.Equal(t, 30, cfg.DeletionGraceDays)
	assert.Equal(t, 7*24*time.Hour, cfg.InvitationTTL)
	assert.Equal(t, 60*time.Second, cfg.AITimeout)
	assert.True(t, cfg.JobsEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("AI_PAID_RECOGNITIONS_PER_MONTH", "12")
	t.Setenv("AI_TIMEOUT", "5s")
	t.Setenv("JOBS_ENABLED", "false")
	t.Setenv("FREE_MAX_TOYS", "0")

	cfg := Load()

	assert.Equal(t, "jwt", cfg.AuthMode)
	assert.Equal(t, 12, cfg.PaidRecognitionsPerMonth)
	assert.Equal(t, 5*time.Second, cfg.AITimeout)
	assert.False(t, cfg.JobsEnabled)
	assert.Equal(t, 0, cfg.FreeMaxToys)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("AI_TIMEOUT", "soon")
	t.Setenv("FREE_MAX_CHILDREN", "many")

	cfg := Load()

	assert.Equal(t, 60*time.Second, cfg.AITimeout)
	assert.Equal(t, 2, cfg.FreeMaxChildren)
}

func TestAIConfigured(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.AIConfigured())

	cfg.DeepSeekAPIKey = "sk-test"
	assert.True(t, cfg.AIConfigured())
}
