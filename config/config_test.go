package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "journey.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	return path
}

func TestDefault(t *testing.T) {
	c := Default()

	require.NoError(t, c.Validate())
	require.Equal(t, 3, c.Cluster.Size)
	require.Equal(t, "http", c.Service.Scheme)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
versions:
  - "1.16.0"
  - "1.16.1"
cluster:
  size: 5
  host_port_base: 9000
health:
  interval: 500ms
  attempts: 10
`)

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	require.Equal(t, []string{"1.16.0", "1.16.1"}, c.Versions)
	require.Equal(t, 5, c.Cluster.Size)
	require.Equal(t, 9000, c.Cluster.HostPortBase)
	require.Equal(t, Duration(500*time.Millisecond), c.Health.Interval)
	require.Equal(t, 10, c.Health.Attempts)

	// Unset fields keep the defaults.
	require.Equal(t, "semitechnologies/weaviate", c.Cluster.Image)
	require.Equal(t, 5, c.Read.Attempts)
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, `
health:
  interval: soon
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero size", func(c *Config) { c.Cluster.Size = 0 }},
		{"no image", func(c *Config) { c.Cluster.Image = "" }},
		{"zero port base", func(c *Config) { c.Cluster.HostPortBase = 0 }},
		{"zero attempts", func(c *Config) { c.Health.Attempts = 0 }},
		{"zero interval", func(c *Config) { c.Read.Interval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			require.Error(t, c.Validate())
		})
	}
}
