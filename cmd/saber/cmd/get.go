/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/paulista5/SABER/pkg/api"
	"github.com/paulista5/SABER/pkg/dataset"
)

func newGetCmd() *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get <store> <index>",
		Short: "Read one record by index",
		Long: `Read one record the way a training loop would. Missing records are
substituted by a random index; the served index is part of the output.

With --with the two stores are read as one concatenated dataset.

Examples:
  saber get ./data/train-labelled-en 42
  saber get ./data/train-labelled-en 42 --epoch 3 --output yaml
  saber get ./data/train-labelled-en 1200 --with ./data/train-labelled-de`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("index must be an integer: %q", args[1])
			}
			epoch, _ := cmd.Flags().GetInt("epoch")
			with, _ := cmd.Flags().GetString("with")
			format, _ := cmd.Flags().GetString("output")

			opts, err := container.ReaderOptions()
			if err != nil {
				return err
			}

			var ds dataset.Dataset
			if with == "" {
				ds, err = dataset.Open(args[0], opts)
			} else {
				ds, err = dataset.OpenComposite(args[0], with, opts)
			}
			if err != nil {
				return err
			}
			defer ds.Close()

			ds.SetEpoch(epoch)
			item, err := ds.Get(index)
			if err != nil {
				return err
			}
			return writeStructured(cmd.OutOrStdout(), format, api.NewRecordResponse(index, item))
		},
	}

	getCmd.Flags().Int("epoch", 0, "Epoch attached to the record")
	getCmd.Flags().String("with", "", "Second store read after the first")
	getCmd.Flags().StringP("output", "o", "json", "Output format: json or yaml")
	return getCmd
}
