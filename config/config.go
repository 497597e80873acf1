// Package config loads the agentpipe YAML configuration.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nomis52/agentpipe/logging"
)

const (
	// Analysis modes
	ModeRules  = "rules"
	ModeLLM    = "llm"
	ModeHybrid = "hybrid"

	defaultPipelineName = "analysis"
	defaultMode         = ModeRules

	defaultMaxFiles    = 50
	defaultMaxFileSize = 1 << 20

	defaultLLMTimeout = 60 * time.Second

	defaultMetricsPrefix = "agentpipe"
	defaultJobName       = "agentpipe"
)

var validModes = []string{ModeRules, ModeLLM, ModeHybrid}

// Config represents the complete application configuration
type Config struct {
	Logging    logging.Config   `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	LLM        LLMConfig        `yaml:"llm"`
}

// MonitoringConfig holds metrics settings. Metrics are pushed when
// VictoriaMetricsURL is set, or written in Prometheus text format to
// TextfilePath for a node exporter textfile collector. At most one may be set.
type MonitoringConfig struct {
	VictoriaMetricsURL string `yaml:"victoriametrics_url"`
	TextfilePath       string `yaml:"textfile_path"`
	MetricsPrefix      string `yaml:"metrics_prefix"`
	JobName            string `yaml:"jobname"`
}

// PipelineConfig controls how the analysis pipeline is assembled.
type PipelineConfig struct {
	Name string `yaml:"name"`
	// Mode is one of rules, llm, hybrid.
	Mode string `yaml:"mode"`
	// MaxParallel caps concurrently running group members. 0 means no cap.
	MaxParallel int `yaml:"max_parallel"`
	// Agents holds per-agent configuration maps keyed by agent name.
	Agents map[string]map[string]any `yaml:"agents"`
}

// AnalysisConfig limits the size of an analysis request.
type AnalysisConfig struct {
	MaxFiles    int `yaml:"max_files"`
	MaxFileSize int `yaml:"max_file_size"`
}

// LLMConfig configures the HTTP model endpoint used in llm and hybrid modes.
type LLMConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if !slices.Contains(validModes, c.Pipeline.Mode) {
		return fmt.Errorf("pipeline mode must be one of: %s", strings.Join(validModes, ", "))
	}
	if c.Pipeline.MaxParallel < 0 {
		return fmt.Errorf("pipeline max_parallel must not be negative")
	}
	if c.Analysis.MaxFiles <= 0 {
		return fmt.Errorf("analysis max_files must be positive")
	}
	if c.Analysis.MaxFileSize <= 0 {
		return fmt.Errorf("analysis max_file_size must be positive")
	}
	if c.Pipeline.Mode != ModeRules && c.LLM.URL == "" {
		return fmt.Errorf("llm url is required in %s mode", c.Pipeline.Mode)
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm timeout must not be negative")
	}
	if c.Monitoring.VictoriaMetricsURL != "" && c.Monitoring.TextfilePath != "" {
		return fmt.Errorf("monitoring victoriametrics_url and textfile_path are mutually exclusive")
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	c.Logging.SetDefaults()

	if c.Pipeline.Name == "" {
		c.Pipeline.Name = defaultPipelineName
	}
	if c.Pipeline.Mode == "" {
		c.Pipeline.Mode = defaultMode
	}
	if c.Pipeline.Agents == nil {
		c.Pipeline.Agents = map[string]map[string]any{}
	}
	if c.Analysis.MaxFiles == 0 {
		c.Analysis.MaxFiles = defaultMaxFiles
	}
	if c.Analysis.MaxFileSize == 0 {
		c.Analysis.MaxFileSize = defaultMaxFileSize
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = defaultLLMTimeout
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
}

// AgentConfig returns the configuration map for the named agent, or an empty map.
func (c *Config) AgentConfig(name string) map[string]any {
	if cfg, ok := c.Pipeline.Agents[name]; ok && cfg != nil {
		return cfg
	}
	return map[string]any{}
}

// LoadConfig reads the YAML config file at the given path and returns a Config struct
func LoadConfig(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config %s: %w", path, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
