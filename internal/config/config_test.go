package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	vars := map[string]string{
		"INTAB_API_USERNAME":  "intab-user",
		"INTAB_API_PASSWORD":  "intab-pass",
		"INTAB_API_BASE_URL":  "https://intab.example.com",
		"SDG_API_USERNAME":    "sdg-user",
		"SDG_API_PASSWORD":    "sdg-pass",
		"SDG_API_BASE_URL":    "https://sdg.example.com",
		"NATS_SERVER1":        "nats.example.com",
		"NATS_STREAM_NAME":    "telemetry",
		"NATS_SUBJECT":        "telemetry.batches",
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoadSucceedsWithAllRequiredVars(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://intab.example.com/auth/login", cfg.Intab.LoginURL)
	assert.Equal(t, "nats://nats.example.com:4222", cfg.Nats.Address)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFailsWhenRequiredVarMissing(t *testing.T) {
	setRequiredEnv(t)
	require.NoError(t, os.Unsetenv("NATS_SUBJECT"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NATS_SUBJECT")
}
