package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hed1ad/isoforest/pkg/dataset"
)

func newDescribeCmd(root *rootOptions) *cobra.Command {
	var input inputOptions

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print per-attribute statistics and check the input can be trained on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := input.open(nil)
			if err != nil {
				return err
			}
			defer r.Close()

			data, err := r.Read()
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ATTRIBUTE\tKIND\tMIN\tMAX\tMEAN\tSTDDEV\t")
			for _, s := range dataset.Summarize(data) {
				name := s.Name
				if s.Constant() {
					name += " (constant)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%g\t%g\t%.4g\t%.4g\t\n", name, s.Kind, s.Min, s.Max, s.Mean, s.StdDev)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\n%d instances, %d attributes", data.Len(), data.NumAttributes())
			if data.ClassIndex >= 0 {
				fmt.Fprintf(out, ", class %q", data.Attributes[data.ClassIndex].Name)
			}
			fmt.Fprintln(out)

			if err := dataset.CheckCapabilities(data); err != nil {
				root.logger.Warn("input cannot be used for training", "error", err)
				return err
			}
			return nil
		},
	}

	input.register(cmd)

	return cmd
}
