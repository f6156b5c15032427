package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoFileOrFlags(t *testing.T) {
	cfg, err := Load(t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultElementLimit, cfg.ElementLimit)
	assert.Equal(t, DefaultMaxTimeoutSeconds, cfg.MaxTimeoutSeconds)
	assert.Equal(t, DefaultBackend, cfg.Backend)
	assert.Equal(t, time.Duration(DefaultMaxTimeoutSeconds)*time.Second, cfg.MaxTimeout())
}

func TestLoadReadsProjectFile(t *testing.T) {
	dir := t.TempDir()
	content := "element_limit: 5000\nbackend: duckdb\nbackend_dsn: ./snap.duckdb\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o600))

	cfg, err := Load(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.ElementLimit)
	assert.Equal(t, "duckdb", cfg.Backend)
	assert.Equal(t, "./snap.duckdb", cfg.BackendDSN)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("backend: duckdb\n"), 0o600))

	require.NoError(t, os.Setenv("GEOQL_BACKEND", "postgres"))
	defer func() { _ = os.Unsetenv("GEOQL_BACKEND") }()

	cfg, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Backend)
}

func TestLoadFlagOverridesEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("backend: duckdb\n"), 0o600))
	require.NoError(t, os.Setenv("GEOQL_BACKEND", "postgres"))
	defer func() { _ = os.Unsetenv("GEOQL_BACKEND") }()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("backend", "", "storage backend")
	require.NoError(t, fs.Set("backend", "memory"))

	cfg, err := Load(dir, fs)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Backend)
}

func TestValidateRejectsNonPositiveLimits(t *testing.T) {
	cfg := &Config{ElementLimit: 0, MaxTimeoutSeconds: 10, MaxMemory: 10, Backend: "memory"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element_limit")
}

func TestValidateRejectsMalformedGlobalBBox(t *testing.T) {
	cfg := &Config{ElementLimit: 1, MaxTimeoutSeconds: 1, MaxMemory: 1, Backend: "memory",
		AllowImplicitBBox: true, GlobalBBox: "not-a-bbox"}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestParseBBoxParsesFourComponents(t *testing.T) {
	bb, err := ParseBBox("50.0, 7.0, 51.0, 8.0")
	require.NoError(t, err)
	assert.Equal(t, 50.0, bb.S)
	assert.Equal(t, 7.0, bb.W)
	assert.Equal(t, 51.0, bb.N)
	assert.Equal(t, 8.0, bb.E)
}

func TestBudgetConvertsSecondsToDuration(t *testing.T) {
	cfg := &Config{ElementLimit: 100, MaxTimeoutSeconds: 30}
	b := cfg.Budget()
	assert.Equal(t, 100, b.ElementLimit)
	assert.Equal(t, 30*time.Second, b.MaxTimeout)
}

func TestFindProjectRootWalksUpward(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("backend: memory\n"), 0o600))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, root, FindProjectRoot(nested))
}
