/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/paulista5/SABER/pkg/api"
	"github.com/paulista5/SABER/pkg/dataset"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Open dataset stores and serve their records over HTTP.

Without --dataset every {split}-labelled-{lang} store under the root is served,
named after its directory. Prometheus metrics are exposed at /metrics.

Examples:
  saber serve
  saber serve --dataset train=./data/train-labelled-en --port 8080
  saber serve --api-key mysecretkey`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := container.Config()
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Server.Port, _ = flags.GetInt("port")
			}
			if flags.Changed("bind") {
				cfg.Server.Bind, _ = flags.GetString("bind")
			}
			if flags.Changed("api-key") {
				cfg.Server.APIKey, _ = flags.GetString("api-key")
			}

			entries, _ := flags.GetStringArray("dataset")
			paths, err := datasetPaths(cfg.Root, entries)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no datasets found under %s", cfg.Root)
			}

			opts, err := container.ReaderOptions()
			if err != nil {
				return err
			}

			datasets := make(map[string]dataset.Dataset, len(paths))
			defer func() {
				for _, ds := range datasets {
					ds.Close()
				}
			}()
			for name, path := range paths {
				r, err := dataset.Open(path, opts)
				if err != nil {
					return err
				}
				datasets[name] = r
				container.Logger().Info("opened dataset", "name", name, "path", path, "samples", r.Len())
			}

			if cfg.Server.APIKey == "" {
				container.Logger().Warn("API key not set, authentication disabled")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := api.NewServer(datasets, container.ServerConfig(), container.Metrics(), container.Logger())
			return container.GetServerStarter().Start(ctx, server, container.Registry())
		},
	}

	serveCmd.Flags().StringArray("dataset", nil, "Dataset to serve as name=path (repeatable)")
	serveCmd.Flags().IntP("port", "p", 9200, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
	serveCmd.Flags().String("api-key", "", "API key required in the X-API-Key header")
	return serveCmd
}

// datasetPaths parses name=path entries, or discovers stores under root when
// none are given.
func datasetPaths(root string, entries []string) (map[string]string, error) {
	paths := make(map[string]string)

	if len(entries) == 0 {
		matches, err := filepath.Glob(filepath.Join(root, "*-labelled-*"))
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", root, err)
		}
		for _, match := range matches {
			if info, err := os.Stat(match); err == nil && info.IsDir() {
				paths[filepath.Base(match)] = match
			}
		}
		return paths, nil
	}

	for _, entry := range entries {
		name, path, ok := strings.Cut(entry, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("invalid dataset %q, expected name=path", entry)
		}
		if _, dup := paths[name]; dup {
			return nil, fmt.Errorf("duplicate dataset name %q", name)
		}
		paths[name] = path
	}
	return paths, nil
}
