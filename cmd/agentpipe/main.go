// Command agentpipe runs the test-quality analysis pipeline over Python test
// files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nomis52/agentpipe/buildinfo"
	"github.com/nomis52/agentpipe/config"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "agentpipe",
		Short: "Analyze pytest files with a pipeline of agents",
		Long: `agentpipe parses pytest files, runs the rule engine and optionally a
language model over them, and prints the merged issues as JSON.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration validation successful: %s\n", configPath)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			props := buildinfo.Get()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "agentpipe\n")
			fmt.Fprintf(out, "Built: %s\n", props.BuildTime)
			fmt.Fprintf(out, "Commit: %s\n", props.GitCommit)
		},
	}
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Config{}, fmt.Errorf("config flag (-c or --config) is required")
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
