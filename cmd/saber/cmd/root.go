/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/paulista5/SABER/pkg/config"
	"github.com/paulista5/SABER/pkg/di"
	"github.com/paulista5/SABER/pkg/store"
)

var container *di.Container

// SetContainer sets the dependency injection container
func SetContainer(c *di.Container) {
	container = c
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "saber",
		Short: "SABER - speech dataset stores",
		Long: `SABER converts speech recognition datasets into persistent key-value stores
and serves them back by index with epoch-aware, fault-tolerant reads.

Stores live under the configured root as {split}-labelled-{lang}.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if container != nil {
				return nil
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			c, err := di.NewContainer(cfg, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			SetContainer(c)
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ~/.config/saber/config.yaml)")
	rootCmd.PersistentFlags().String("root", "", "Dataset root directory (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(
		newInitCmd(),
		newBuildCmd(),
		newInspectCmd(),
		newGetCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// Execute runs the root command and terminates the process on failure.
// This is called by main.main().
func Execute() {
	os.Exit(run(NewRootCmd(), os.Args[1:], os.Stderr))
}

// run executes cmd and returns the process exit code
func run(cmd *cobra.Command, args []string, stderr io.Writer) int {
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	if store.IsOpenError(err) {
		fmt.Fprintf(stderr, "Error: invalid dataset store: %v\n", err)
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}

// configPath returns the --config flag or the default location
func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	return path
}

// loadConfig reads the config file when present, applies flag overrides and
// validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath(cmd)

	cfg := config.DefaultConfig()
	if config.ConfigExists(path) {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if root, _ := cmd.Flags().GetString("root"); root != "" {
		cfg.Root = root
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// datasetPath resolves a store from a positional path or --split/--lang
func datasetPath(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	split, _ := cmd.Flags().GetString("split")
	lang, _ := cmd.Flags().GetString("lang")
	if split == "" || lang == "" {
		return "", fmt.Errorf("a store path or both --split and --lang are required")
	}
	return container.Config().SplitPath(split, lang), nil
}
