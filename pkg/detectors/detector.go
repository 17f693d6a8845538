// Package detectors provides unsupervised anomaly detection algorithms.
package detectors

import (
	"context"
	"errors"

	"github.com/hed1ad/isoforest/pkg/dataset"
)

// Detector is the common interface for all anomaly detection algorithms.
type Detector interface {
	// Fit trains the detector on a dataset. The class attribute, if any,
	// is ignored.
	Fit(data *dataset.Dataset) error

	// Predict returns anomaly scores for the given records.
	// Scores lie in (0, 1] where higher values indicate anomalies.
	Predict(records [][]float64) ([]float64, error)

	// PredictOne returns the anomaly score for a single record.
	PredictOne(record []float64) (float64, error)

	// Distribution returns [score, 1-score]; the first slot is "anomaly".
	Distribution(record []float64) ([]float64, error)

	// Save serializes the trained model to bytes.
	Save() ([]byte, error)

	// Load deserializes a trained model from bytes.
	Load(data []byte) error
}

// StreamDetector extends Detector with streaming capabilities.
type StreamDetector interface {
	Detector

	// PredictStream processes records from a channel and outputs scores.
	PredictStream(ctx context.Context, input <-chan []float64, output chan<- Score) error
}

// Score represents an anomaly detection result.
type Score struct {
	// Value is the anomaly score in (0, 1].
	Value float64
	// IsAnomaly indicates if the score reaches the threshold.
	IsAnomaly bool
	// Features contains the original input record.
	Features []float64
	// Metadata contains additional information.
	Metadata map[string]any
}

// Config holds common configuration for detectors.
type Config struct {
	// NumTrees is the size of the ensemble.
	NumTrees int `yaml:"num_trees"`
	// SubsampleSize is the number of records used to grow each tree.
	SubsampleSize int `yaml:"subsample_size"`
	// Contamination is the expected proportion of anomalies in training
	// data. Zero keeps the default threshold.
	Contamination float64 `yaml:"contamination"`
	// RandomSeed for reproducibility.
	RandomSeed int64 `yaml:"seed"`
}

// DefaultConfig returns sensible defaults for detector configuration.
func DefaultConfig() Config {
	return Config{
		NumTrees:      100,
		SubsampleSize: 256,
		Contamination: 0,
		RandomSeed:    1,
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.NumTrees <= 0 {
		return errors.New("number of trees must be positive")
	}
	if c.SubsampleSize <= 0 {
		return errors.New("subsample size must be positive")
	}
	if c.Contamination < 0 || c.Contamination >= 0.5 {
		return errors.New("contamination must be in [0, 0.5)")
	}
	return nil
}
