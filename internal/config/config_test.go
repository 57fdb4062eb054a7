package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, ProviderNone, cfg.Narrative.Provider)
	assert.Equal(t, 40000, cfg.Narrative.PayloadBudget)
}

func TestLoadYAMLThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feasibility.yml")
	yml := `
log_mode: prod
store:
  driver: sqlite
  sqlite_path: /tmp/x.db
narrative:
  provider: none
  timeout: 45s
autosave:
  debounce: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("FEASIBILITY_SQLITE_PATH", filepath.Join(dir, "override.db"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.LogMode)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(dir, "override.db"), cfg.Store.SQLitePath)
	assert.Equal(t, 45*time.Second, cfg.Narrative.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Autosave.Debounce)
}

func TestValidateRejectsProviderWithoutKey(t *testing.T) {
	cfg := Default()
	cfg.Narrative.Provider = ProviderAnthropic
	require.Error(t, cfg.Validate())

	cfg.Narrative.AnthropicKey = "k"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "dexie"
	require.Error(t, cfg.Validate())
}

func TestValidateFileDriverNeedsPath(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = StoreFile
	require.NoError(t, cfg.Validate())

	cfg.Store.StatePath = " "
	require.Error(t, cfg.Validate())
}
