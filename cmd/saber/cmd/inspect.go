/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/paulista5/SABER/pkg/dataset"
)

func newInspectCmd() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect [store]",
		Short: "Report the sample count, excluded and corrupt records of a store",
		Long: `Walk every index of a store and decode each record.

Examples:
  saber inspect ./data/train-labelled-en
  saber inspect --split dev --lang en --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := datasetPath(cmd, args)
			if err != nil {
				return err
			}
			opts, err := container.StoreOptions()
			if err != nil {
				return err
			}

			report, err := dataset.Inspect(path, opts)
			if err != nil {
				return err
			}

			format, _ := cmd.Flags().GetString("output")
			return outputReport(cmd.OutOrStdout(), format, report)
		},
	}

	inspectCmd.Flags().String("split", "", "Dataset split, e.g. train")
	inspectCmd.Flags().String("lang", "", "Dataset language, e.g. en")
	inspectCmd.Flags().StringP("output", "o", "table", "Output format: table, json or yaml")
	return inspectCmd
}
