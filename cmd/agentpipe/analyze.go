package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nomis52/agentpipe/analysis"
	"github.com/nomis52/agentpipe/buildinfo"
	"github.com/nomis52/agentpipe/clients/llmclient"
	"github.com/nomis52/agentpipe/config"
	"github.com/nomis52/agentpipe/logging"
	"github.com/nomis52/agentpipe/metrics"
	"github.com/nomis52/agentpipe/orchestrator"
	"github.com/nomis52/agentpipe/status"
)

type analyzeArgs struct {
	mode     string
	showLogs bool
}

// output is what analyze prints.
type output struct {
	Summary  orchestrator.Summary          `json:"summary"`
	Report   analysis.Report               `json:"report"`
	Statuses map[string]string             `json:"statuses"`
	Logs     map[string][]logging.LogEntry `json:"logs,omitempty"`
}

func newAnalyzeCmd() *cobra.Command {
	var args analyzeArgs
	cmd := &cobra.Command{
		Use:   "analyze [files or directories...]",
		Short: "Analyze pytest files",
		Long: `Analyze pytest files and print the merged issues as JSON.

Directories are searched for test_*.py and *_test.py files.

Examples:
  agentpipe analyze -c config.yaml tests/
  agentpipe analyze -c config.yaml --mode hybrid tests/test_api.py`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, paths []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if args.mode != "" {
				cfg.Pipeline.Mode = args.mode
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("invalid --mode: %w", err)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAnalyze(ctx, cfg, args, paths, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&args.mode, "mode", "", "Override pipeline mode: rules, llm or hybrid")
	cmd.Flags().BoolVar(&args.showLogs, "logs", false, "Include captured agent logs in the output")
	return cmd
}

func runAnalyze(ctx context.Context, cfg config.Config, args analyzeArgs, paths []string, out io.Writer) error {
	logger, err := logging.New(reportLogging(cfg.Logging))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	props := buildinfo.Get()
	logger.Info("agentpipe started",
		"build_time", props.BuildTime,
		"git_commit", props.GitCommit,
		"config_path", configPath,
		"mode", cfg.Pipeline.Mode,
	)

	files, err := collectFiles(paths)
	if err != nil {
		return err
	}

	registry, flush, err := newRegistry(cfg.Monitoring)
	if err != nil {
		return err
	}
	defer func() {
		if err := flush(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to push metrics", "error", err)
		}
	}()

	instruments, err := orchestrator.NewInstruments(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	mode, err := analysis.ParseMode(cfg.Pipeline.Mode)
	if err != nil {
		return err
	}
	var llm analysis.LLMClient
	if mode.RunsLLM() {
		client, err := llmclient.New(cfg.LLM.URL,
			llmclient.WithToken(cfg.LLM.Token),
			llmclient.WithModel(cfg.LLM.Model),
			llmclient.WithTimeout(cfg.LLM.Timeout),
			llmclient.WithLogger(logger.Logger))
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}
		llm = client
	}

	collector := logging.NewLogCollector()
	statuses := status.NewHandler()
	pipeline := analysis.NewPipeline(analysis.Options{
		Name:        cfg.Pipeline.Name,
		Mode:        mode,
		MaxFiles:    cfg.Analysis.MaxFiles,
		MaxFileSize: cfg.Analysis.MaxFileSize,
		LLM:         llm,
		AgentConfig: cfg.Pipeline.Agents,
	},
		orchestrator.WithLogger(logger.Logger),
		orchestrator.WithLogHook(logging.NewCapturingLoggerHook(collector)),
		orchestrator.WithStatusHandler(statuses),
		orchestrator.WithInstruments(instruments),
		orchestrator.WithMaxParallel(cfg.Pipeline.MaxParallel),
	)

	report, pc, runErr := pipeline.Analyze(ctx, analysis.Request{Files: files})

	result := output{
		Summary:  pipeline.Summary(pc),
		Report:   report,
		Statuses: statuses.All(),
	}
	if args.showLogs {
		result.Logs = collector.All()
	}
	if err := writeJSON(out, result); err != nil {
		return err
	}

	if runErr != nil {
		if errors.Is(runErr, analysis.ErrHalted) {
			logger.Error("analysis halted", "request_id", pc.RequestID(), "error", runErr)
		}
		return runErr
	}
	logger.Info("analysis complete",
		"request_id", pc.RequestID(),
		"files", len(files),
		"issues", len(report.Issues))
	return nil
}

// reportLogging moves logs off stdout, which carries the JSON report.
func reportLogging(cfg logging.Config) logging.Config {
	if cfg.Output == "" || cfg.Output == "stdout" {
		cfg.Output = "stderr"
	}
	return cfg
}

// newRegistry picks the metrics sink from cfg: remote write push, a textfile
// for the node exporter, or nothing. The returned flush function publishes
// what the run recorded.
func newRegistry(cfg config.MonitoringConfig) (metrics.Registry, func(context.Context) error, error) {
	switch {
	case cfg.VictoriaMetricsURL != "":
		hostname, err := os.Hostname()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get hostname: %w", err)
		}
		reg := metrics.NewPushRegistry(metrics.PushConfig{
			URL:      cfg.VictoriaMetricsURL,
			Prefix:   cfg.MetricsPrefix,
			Job:      cfg.JobName,
			Instance: hostname,
		})
		return reg, reg.Flush, nil
	case cfg.TextfilePath != "":
		reg, err := metrics.NewScrapeRegistry(metrics.WithoutRuntimeCollectors())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create metrics registry: %w", err)
		}
		return reg, func(context.Context) error { return reg.WriteTextfile(cfg.TextfilePath) }, nil
	}
	return metrics.NopRegistry{}, func(context.Context) error { return nil }, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
