package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "docstore.yaml", `
connection_target: redis://localhost:6379/2
collection_name: users
id_length: 20
log_level: debug
`)
	t.Setenv("DOCSTORE_COLLECTION_NAME", "orders")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379/2", cfg.ConnectionTarget)
	assert.Equal(t, "orders", cfg.CollectionName)
	assert.Equal(t, 20, cfg.IDLength)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultLogFormat, cfg.LogFormat)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "CONNECTION_TARGET=sqlite://:memory:\nCOLLECTION_NAME=sessions\n")
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite://:memory:", cfg.ConnectionTarget)
	assert.Equal(t, "sessions", cfg.CollectionName)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Chdir(t.TempDir())
	t.Setenv("DOCSTORE_COLLECTION_NAME", "bad:name")
	_, err = Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"EmptyTarget":     func(c *Config) { c.ConnectionTarget = " " },
		"EmptyCollection": func(c *Config) { c.CollectionName = "" },
		"ColonCollection": func(c *Config) { c.CollectionName = "a:b" },
		"ZeroIDLength":    func(c *Config) { c.IDLength = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
	assert.NoError(t, Default().Validate())
}
