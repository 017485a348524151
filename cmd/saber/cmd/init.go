/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paulista5/SABER/pkg/config"
)

func newInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file and the dataset root",
		Long: `Write a default configuration with a generated API key and create the
dataset root directory.

Examples:
  saber init
  saber init --root ./datasets --config ./saber.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			path := configPath(cmd)

			if config.ConfigExists(path) && !force {
				cmd.Printf("Config already exists at %s. Use --force to overwrite.\n", path)
				return nil
			}

			cfg, err := config.BootstrapConfig(path, container.Config().Root)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Root, 0750); err != nil {
				return fmt.Errorf("failed to create dataset root: %w", err)
			}

			cmd.Printf("✅ Wrote config to %s\n", path)
			cmd.Printf("Dataset root: %s\n", cfg.Root)
			cmd.Printf("API key: %s\n", cfg.Server.APIKey)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	return initCmd
}
