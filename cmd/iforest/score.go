package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hed1ad/isoforest/pkg/dataset"
	"github.com/hed1ad/isoforest/pkg/detectors"
	"github.com/hed1ad/isoforest/pkg/detectors/iforest"
	gio "github.com/hed1ad/isoforest/pkg/io"
	"github.com/hed1ad/isoforest/pkg/io/jsonl"
)

func newScoreCmd(root *rootOptions) *cobra.Command {
	var (
		input     inputOptions
		modelFile string
		threshold float64
		features  bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score records against a saved model as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(modelFile)
			if err != nil {
				return fmt.Errorf("read model: %w", err)
			}
			f := iforest.New(iforest.WithLogger(root.logger))
			if err := f.Load(raw); err != nil {
				return err
			}
			if cmd.Flags().Changed("threshold") {
				f.SetThreshold(threshold)
			}
			header := f.Header()
			root.logger.Debug("model loaded", "summary", f.String(), "threshold", f.Threshold())

			r, err := input.open(header)
			if err != nil {
				return err
			}
			defer r.Close()

			if err := checkSchema(r, header); err != nil {
				return err
			}

			out := jsonl.NewWriter(cmd.OutOrStdout())
			err = scoreStream(cmd.Context(), f, r, out, header, features)
			return errors.Join(err, out.Flush())
		},
	}

	input.register(cmd)
	cmd.Flags().StringVarP(&modelFile, "model", "m", "iforest.model", "fitted model file")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.5, "override the model's anomaly threshold")
	cmd.Flags().BoolVar(&features, "features", false, "include input features in the output")

	return cmd
}

// scoreStream pipes records from r through the detector and writes one
// result per scored record.
func scoreStream(ctx context.Context, d detectors.StreamDetector, r gio.Reader, w gio.Writer,
	header *dataset.Dataset, withFeatures bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	g, ctx := errgroup.WithContext(ctx)

	records, err := r.Stream(ctx)
	if err != nil {
		return err
	}
	scores := make(chan detectors.Score, 100)

	g.Go(func() error {
		defer close(scores)
		return d.PredictStream(ctx, records, scores)
	})

	g.Go(func() error {
		for s := range scores {
			res := gio.Result{
				Timestamp: time.Now().UnixMilli(),
				Score:     s.Value,
				IsAnomaly: s.IsAnomaly,
			}
			if withFeatures {
				res.Features = featureValues(header, s.Features)
			}
			if err := w.Write(res); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if s, ok := r.(interface{ Err() error }); ok {
		if err := s.Err(); err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}
	return nil
}

// checkSchema rejects input whose width differs from the model's.
func checkSchema(r gio.Reader, header *dataset.Dataset) error {
	s, ok := r.(interface{ Schema() *dataset.Dataset })
	if !ok {
		return nil
	}
	schema := s.Schema()
	if schema != nil && schema.NumAttributes() != header.NumAttributes() {
		return fmt.Errorf("input has %d attributes, model expects %d",
			schema.NumAttributes(), header.NumAttributes())
	}
	return nil
}

// featureValues drops the class slot, which may be missing and is not
// representable in JSON.
func featureValues(header *dataset.Dataset, record []float64) []float64 {
	if header.ClassIndex < 0 {
		return record
	}
	out := make([]float64, 0, len(record)-1)
	for j, v := range record {
		if !header.IsClass(j) {
			out = append(out, v)
		}
	}
	return out
}
