package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("SB_TEST_HOST", "redis.internal")

	t.Run("set variable wins", func(t *testing.T) {
		assert.Equal(t, "host: redis.internal", expandEnv("host: ${SB_TEST_HOST:localhost}"))
	})
	t.Run("default used when unset", func(t *testing.T) {
		assert.Equal(t, "port: 6379", expandEnv("port: ${SB_TEST_UNSET_PORT:6379}"))
	})
	t.Run("undefined without default kept", func(t *testing.T) {
		assert.Equal(t, "key: ${SB_TEST_MISSING}", expandEnv("key: ${SB_TEST_MISSING}"))
	})
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	base := []byte(`
app:
  name: storyboard-test
prompt:
  token_budget: ${SB_TEST_BUDGET:70}
evaluation:
  feedback:
    high_gap: 0.2
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), base, 0o644))
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)

	assert.Equal(t, "storyboard-test", cfg.App.Name)
	assert.Equal(t, 70, cfg.Prompt.TokenBudget)
	assert.Equal(t, 77, cfg.Prompt.HardLimit)
	assert.InDelta(t, 0.2, cfg.Evaluation.Feedback.HighGap, 1e-9)
	assert.InDelta(t, 0.05, cfg.Evaluation.Feedback.SSIMGap, 1e-9)
	assert.Equal(t, 2, cfg.Validation.MaxRegenerationAttempts)
	assert.Len(t, cfg.Evaluation.ReferenceImages, 5)
	assert.Equal(t, 60*time.Second, cfg.Server.HTTP.ShutdownTimeout)

	profile := cfg.Character.Profile()
	assert.Equal(t, "dark brown", profile.EyeColor)
	assert.NoError(t, profile.Validate())
}

func TestLoadFromDirMissingBase(t *testing.T) {
	_, err := LoadFromDir(t.TempDir())
	assert.Error(t, err)
}
