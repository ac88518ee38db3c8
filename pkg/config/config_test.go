package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 6, cfg.MaxSteps)
	assert.Positive(t, cfg.Budgets.MaxChars)
	assert.Positive(t, cfg.Budgets.MaxElements)
	assert.Positive(t, cfg.Fetch.TimeoutSeconds)
	assert.NotEmpty(t, cfg.Fetch.UserAgent)
	assert.NotEmpty(t, cfg.Policy.BlockedHosts)
	assert.Positive(t, cfg.Sampling.MaxTokens)
	assert.Positive(t, cfg.Detail.MaxTokens)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "max_steps: 12\nbudgets:\n  max_chars: 2000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.MaxSteps)
	assert.Equal(t, 2000, cfg.Budgets.MaxChars)
	// Unset fields fall back to defaults.
	assert.Equal(t, Default().Budgets.MaxElements, cfg.Budgets.MaxElements)
	assert.Equal(t, Default().Fetch.UserAgent, cfg.Fetch.UserAgent)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_steps: [not an int"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyDetailMode(t *testing.T) {
	cfg := Default()
	cfg.ApplyDetailMode()
	assert.Equal(t, 16000, cfg.Budgets.MaxChars)
	assert.Equal(t, 160, cfg.Budgets.MaxElements)

	// Explicit overrides survive detail mode.
	custom := Default()
	custom.Budgets.MaxChars = 3000
	custom.ApplyDetailMode()
	assert.Equal(t, 3000, custom.Budgets.MaxChars)
}
