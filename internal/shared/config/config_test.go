package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"ENV", "SYNTHESIS_PROVIDER", "SYNTHESIS_MAX_ATTEMPTS", "SYNTHESIS_RETRY_BASE_DELAY", "QUEUE_BACKEND", "CACHE_BACKEND"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ProviderOpenAI, cfg.Synthesis.Provider)
	assert.Equal(t, 3, cfg.Synthesis.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Synthesis.RetryBaseDelay)
	assert.Equal(t, 0.7, cfg.Synthesis.Temperature)
	assert.Equal(t, QueueNone, cfg.Queue.Backend)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, 15*time.Minute, cfg.Sweep.StaleAfter)
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SYNTHESIS_PROVIDER=anthropic\nPORT=9999\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("PORT", "7000")
	t.Setenv("SYNTHESIS_PROVIDER", "")
	os.Unsetenv("SYNTHESIS_PROVIDER")

	cfg := Load()
	assert.Equal(t, ProviderAnthropic, cfg.Synthesis.Provider)
	assert.Equal(t, "7000", cfg.Port)
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Env:       "production",
		Synthesis: SynthesisConfig{Provider: ProviderOpenAI, MaxAttempts: 3, RetryBaseDelay: time.Second},
		Queue:     QueueConfig{Backend: QueueSQS},
		Sweep:     SweepConfig{StaleAfter: time.Minute},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	assert.Contains(t, err.Error(), "SQS_QUEUE_URL")

	ok := Config{
		Env:       "dev",
		Synthesis: SynthesisConfig{Provider: ProviderStub, MaxAttempts: 3},
		Queue:     QueueConfig{Backend: QueueNone},
		Sweep:     SweepConfig{StaleAfter: time.Minute},
	}
	assert.NoError(t, ok.Validate())
}

func TestValidateBoundsSynthesisAttempts(t *testing.T) {
	base := Config{
		Env:       "dev",
		Synthesis: SynthesisConfig{Provider: ProviderStub},
		Queue:     QueueConfig{Backend: QueueNone},
		Sweep:     SweepConfig{StaleAfter: time.Minute},
	}
	for _, attempts := range []int{0, MaxSynthesisAttempts + 1, 64} {
		cfg := base
		cfg.Synthesis.MaxAttempts = attempts
		err := cfg.Validate()
		require.Error(t, err, "attempts %d", attempts)
		assert.Contains(t, err.Error(), "SYNTHESIS_MAX_ATTEMPTS")
	}
	cfg := base
	cfg.Synthesis.MaxAttempts = MaxSynthesisAttempts
	assert.NoError(t, cfg.Validate())
}

func TestNormalizeChoice(t *testing.T) {
	assert.Equal(t, "s3", normalizeChoice(" S3 ", "local", "s3"))
	assert.Equal(t, "local", normalizeChoice("gcs", "local", "s3"))
}
