package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hed1ad/isoforest/pkg/dataset"
	gio "github.com/hed1ad/isoforest/pkg/io"
	"github.com/hed1ad/isoforest/pkg/io/csv"
	"github.com/hed1ad/isoforest/pkg/io/pcap"
)

type rootOptions struct {
	configFile string
	verbose    bool
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "iforest",
		Short:        "Isolation forest anomaly detection",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML file with forest settings")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newTrainCmd(opts),
		newScoreCmd(opts),
		newDescribeCmd(opts),
	)

	return cmd
}

// inputOptions selects and configures a data source.
type inputOptions struct {
	csvFile     string
	pcapFile    string
	classColumn string
	dateColumns []string
	dateLayout  string
	noHeader    bool
	timestamp   bool
}

func (o *inputOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.csvFile, "input", "i", "", "CSV input file")
	f.StringVar(&o.pcapFile, "pcap", "", "PCAP input file")
	f.StringVar(&o.classColumn, "class", "", "name of the class column (CSV)")
	f.StringSliceVar(&o.dateColumns, "date", nil, "names of date columns (CSV)")
	f.StringVar(&o.dateLayout, "date-layout", "", "Go time layout for date columns (default RFC 3339)")
	f.BoolVar(&o.noHeader, "no-header", false, "CSV input has no header row")
	f.BoolVar(&o.timestamp, "timestamp", false, "include capture time as a date attribute (PCAP)")
	cmd.MarkFlagsMutuallyExclusive("input", "pcap")
	cmd.MarkFlagsOneRequired("input", "pcap")
}

// open returns a reader for the selected source. A non-nil schema pins the
// CSV column layout to that of a trained model.
func (o *inputOptions) open(schema *dataset.Dataset) (gio.Reader, error) {
	if o.pcapFile != "" {
		return pcap.NewFileReader(o.pcapFile, pcap.WithTimestamp(o.timestamp))
	}
	if o.csvFile == "" {
		return nil, fmt.Errorf("no input given")
	}

	opts := []csv.Option{csv.WithHeader(!o.noHeader)}
	if schema != nil {
		opts = append(opts, csv.WithSchema(schema))
	} else {
		if o.classColumn != "" {
			opts = append(opts, csv.WithClassColumn(o.classColumn))
		}
		opts = append(opts, csv.WithDateColumns(o.dateColumns...))
	}
	if o.dateLayout != "" {
		opts = append(opts, csv.WithDateLayout(o.dateLayout))
	}

	return csv.NewReader(o.csvFile, opts...)
}
