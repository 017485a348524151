/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/paulista5/SABER/pkg/builder"
	"github.com/paulista5/SABER/pkg/manifest"
)

func newBuildCmd() *cobra.Command {
	buildCmd := &cobra.Command{
		Use:   "build <manifest.jsonl>",
		Short: "Build a dataset store from a JSONL manifest",
		Long: `Read every sample of a JSONL manifest, apply the optional duration filter and
write the records to a store in windows. The sample count is written last, so
an interrupted build leaves a store that readers refuse to open.

Examples:
  saber build train.jsonl --split train --lang en
  saber build dev.jsonl --out ./dev-store --engine pebble --compression zstd`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := container.Config()
			flags := cmd.Flags()

			if flags.Changed("workers") {
				cfg.Builder.Workers, _ = flags.GetInt("workers")
			}
			if flags.Changed("window-size") {
				cfg.Builder.WindowSize, _ = flags.GetInt("window-size")
			}
			if flags.Changed("compression") {
				cfg.Builder.Compression, _ = flags.GetString("compression")
			}
			if flags.Changed("engine") {
				cfg.Store.Engine, _ = flags.GetString("engine")
			}
			if flags.Changed("filter") {
				cfg.Filter.Enabled, _ = flags.GetBool("filter")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			out, _ := flags.GetString("out")
			if out == "" {
				var err error
				if out, err = datasetPath(cmd, nil); err != nil {
					return err
				}
			}

			src, err := manifest.Open(args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			rc, err := container.NewCodec()
			if err != nil {
				return err
			}
			defer rc.Close()

			opts, err := container.BuilderOptions(rc)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := builder.Build(ctx, out, src, opts)
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}

			cmd.Printf("✅ Built dataset %s\n", result.BuildID)
			cmd.Printf("Path: %s\n", result.Path)
			cmd.Printf("Samples: %d attempted, %d written, %d excluded\n",
				result.Attempted, result.Written, result.Excluded)
			cmd.Printf("Windows: %d in %s\n", result.Windows, result.Duration)
			return nil
		},
	}

	buildCmd.Flags().String("out", "", "Store directory (default {root}/{split}-labelled-{lang})")
	buildCmd.Flags().String("split", "", "Dataset split, e.g. train")
	buildCmd.Flags().String("lang", "", "Dataset language, e.g. en")
	buildCmd.Flags().Int("workers", 0, "Transform workers per window (0 = number of CPUs)")
	buildCmd.Flags().Int("window-size", builder.DefaultWindowSize, "Samples per committed batch")
	buildCmd.Flags().String("compression", "none", "Record compression: none or zstd")
	buildCmd.Flags().String("engine", "bolt", "Store engine: bolt or pebble")
	buildCmd.Flags().Bool("filter", false, "Exclude samples outside the configured duration bounds")
	return buildCmd
}
