package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCreatesDefaultFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	dir := filepath.Join(t.TempDir(), "dropcode")

	require.NoError(t, InitIn(dir))

	path := filepath.Join(dir, "config.yml")
	assert.Equal(t, path, viper.ConfigFileUsed())
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, GetDefault().Yaml(), b)

	cnf, err := Load()
	require.NoError(t, err)
	assert.Equal(t, GetDefault(), cnf)
	assert.True(t, IsDefault("backend"))
}

func TestInitReadsExistingFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	content := "backend: http://localhost:9000\ntheme: dark\nretries: 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0o644))

	require.NoError(t, InitIn(dir))
	cnf, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", cnf.Backend)
	assert.Equal(t, "dark", cnf.Theme)
	assert.Equal(t, 2, cnf.Retries)
	// Keys missing from the file fall back to defaults.
	assert.Equal(t, "/upload", cnf.UploadRoute)
	assert.Equal(t, StyleRich, cnf.TuiStyle)
	assert.False(t, IsDefault("backend"))

	bc := cnf.BackendConfig()
	assert.Equal(t, "http://localhost:9000", bc.BaseURL)
	assert.Equal(t, "/feedback", bc.FeedbackRoute)
	assert.Equal(t, 2, bc.Retries)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, GetDefault().Validate())

	tests := map[string]func(*Config){
		"backend not a url":   func(c *Config) { c.Backend = "not a url" },
		"route without slash": func(c *Config) { c.UploadRoute = "upload" },
		"unknown style":       func(c *Config) { c.TuiStyle = "fancy" },
		"unknown theme":       func(c *Config) { c.Theme = "sepia" },
		"negative retries":    func(c *Config) { c.Retries = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cnf := GetDefault()
			mutate(&cnf)
			assert.Error(t, cnf.Validate())
		})
	}
}

func TestYamlIsSorted(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(string(GetDefault().Yaml())), "\n")
	require.Len(t, lines, len(GetDefault().Map()))
	assert.True(t, strings.HasPrefix(lines[0], "backend: "))
	assert.Contains(t, lines, "prompt_overwrite_files: true")
	assert.Contains(t, lines, "retries: 0")
}
