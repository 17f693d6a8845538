package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hed1ad/isoforest/pkg/detectors/iforest"
)

func newTrainCmd(root *rootOptions) *cobra.Command {
	var (
		input     inputOptions
		forest    forestFlags
		modelFile string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Build an isolation forest and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root.configFile, cmd, &forest)
			if err != nil {
				return err
			}

			r, err := input.open(nil)
			if err != nil {
				return err
			}
			defer r.Close()

			data, err := r.Read()
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			root.logger.Debug("input loaded", "instances", data.Len(), "attributes", data.NumAttributes())

			f := iforest.New(iforest.WithConfig(cfg), iforest.WithLogger(root.logger))

			start := time.Now()
			if err := f.Fit(data); err != nil {
				return fmt.Errorf("train: %w", err)
			}
			root.logger.Info("training complete", "elapsed", time.Since(start), "threshold", f.Threshold())

			model, err := f.Save()
			if err != nil {
				return err
			}
			if err := os.WriteFile(modelFile, model, 0o644); err != nil {
				return fmt.Errorf("write model: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), f.String())
			return nil
		},
	}

	input.register(cmd)
	forest.register(cmd)
	cmd.Flags().StringVarP(&modelFile, "model", "m", "iforest.model", "file to write the fitted model to")

	return cmd
}
