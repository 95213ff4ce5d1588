package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerURL)
	assert.Equal(t, "127.0.0.1:50051", c.GRPCAddr)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, 3*time.Second, c.HealthCheckInterval)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "authctl.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{"server_url":"http://auth.internal:8080","request_timeout":"2s"}`)

	tests := []struct {
		name     string
		args     []string
		expected *Config
	}{
		{
			name: "defaults only",
			args: nil,
			expected: &Config{
				ServerURL:           "http://127.0.0.1:8080",
				GRPCAddr:            "127.0.0.1:50051",
				RequestTimeout:      10 * time.Second,
				HealthCheckInterval: 3 * time.Second,
			},
		},
		{
			name: "json overlay keeps unset fields",
			args: []string{"-c", path},
			expected: &Config{
				ServerURL:           "http://auth.internal:8080",
				GRPCAddr:            "127.0.0.1:50051",
				RequestTimeout:      2 * time.Second,
				HealthCheckInterval: 3 * time.Second,
			},
		},
		{
			name: "flags win over json",
			args: []string{"-config", path, "-u", "http://other:9090", "-g", "other:50052", "-i", "7"},
			expected: &Config{
				ServerURL:           "http://other:9090",
				GRPCAddr:            "other:50052",
				RequestTimeout:      2 * time.Second,
				HealthCheckInterval: 7 * time.Second,
			},
		},
		{
			name: "foreign arguments are ignored",
			args: []string{"status", "-email", "a@b.c", "-t", "4"},
			expected: &Config{
				ServerURL:           "http://127.0.0.1:8080",
				GRPCAddr:            "127.0.0.1:50051",
				RequestTimeout:      4 * time.Second,
				HealthCheckInterval: 3 * time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.args)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	bad := writeConfig(t, `{ not json`)

	_, err := Load([]string{"-c", bad})
	assert.Error(t, err)

	_, err = Load([]string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)

	_, err = Load([]string{"-t", "abc"})
	assert.Error(t, err)
}
