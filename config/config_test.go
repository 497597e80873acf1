package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/agentpipe/logging"
)

func validConfig() Config {
	cfg := Config{}
	cfg.SetDefaults()
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Pipeline.Mode = "magic" },
			wantErr: "pipeline mode must be one of",
		},
		{
			name:    "negative max parallel",
			mutate:  func(c *Config) { c.Pipeline.MaxParallel = -1 },
			wantErr: "max_parallel",
		},
		{
			name:    "zero max files",
			mutate:  func(c *Config) { c.Analysis.MaxFiles = 0 },
			wantErr: "max_files",
		},
		{
			name:    "zero max file size",
			mutate:  func(c *Config) { c.Analysis.MaxFileSize = 0 },
			wantErr: "max_file_size",
		},
		{
			name:    "llm mode without url",
			mutate:  func(c *Config) { c.Pipeline.Mode = ModeLLM },
			wantErr: "llm url is required",
		},
		{
			name: "push and textfile together",
			mutate: func(c *Config) {
				c.Monitoring.VictoriaMetricsURL = "http://vm:8428"
				c.Monitoring.TextfilePath = "/var/lib/node_exporter/agentpipe.prom"
			},
			wantErr: "mutually exclusive",
		},
		{
			name: "hybrid mode with url",
			mutate: func(c *Config) {
				c.Pipeline.Mode = ModeHybrid
				c.LLM.URL = "http://llm.test"
			},
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging = logging.Config{Level: "loud"} },
			wantErr: "logging",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()

	assert.Equal(t, "analysis", cfg.Pipeline.Name)
	assert.Equal(t, ModeRules, cfg.Pipeline.Mode)
	assert.Equal(t, 50, cfg.Analysis.MaxFiles)
	assert.Equal(t, 1<<20, cfg.Analysis.MaxFileSize)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "agentpipe", cfg.Monitoring.MetricsPrefix)
	assert.Equal(t, "agentpipe", cfg.Monitoring.JobName)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotNil(t, cfg.Pipeline.Agents)
}

func TestLoadConfig(t *testing.T) {
	yamlContent := `
logging:
  level: debug
  format: text
monitoring:
  victoriametrics_url: "http://vm:8428"
pipeline:
  name: nightly
  mode: hybrid
  max_parallel: 2
  agents:
    llm:
      model: small
      max_tokens: 512
    parser:
      strict: true
analysis:
  max_files: 10
llm:
  url: "http://llm.test"
  token: secret
  timeout: 30s
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, "http://vm:8428", cfg.Monitoring.VictoriaMetricsURL)
	assert.Equal(t, "nightly", cfg.Pipeline.Name)
	assert.Equal(t, ModeHybrid, cfg.Pipeline.Mode)
	assert.Equal(t, 2, cfg.Pipeline.MaxParallel)
	assert.Equal(t, 10, cfg.Analysis.MaxFiles)
	assert.Equal(t, 1<<20, cfg.Analysis.MaxFileSize)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)

	assert.Equal(t, map[string]any{"model": "small", "max_tokens": 512}, cfg.AgentConfig("llm"))
	assert.Equal(t, map[string]any{"strict": true}, cfg.AgentConfig("parser"))
	assert.Empty(t, cfg.AgentConfig("merge"))
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "opening config")
	})

	t.Run("unknown field", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  nmae: typo\n"), 0o644))
		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoding config")
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  mode: llm\n"), 0o644))
		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm url is required")
	})
}
