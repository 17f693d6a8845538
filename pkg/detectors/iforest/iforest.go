// Package iforest implements the Isolation Forest algorithm for anomaly detection.
//
// Reference: Liu, Ting and Zhou, "Isolation Forest", ICDM 2008.
package iforest

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/hed1ad/isoforest/pkg/dataset"
	"github.com/hed1ad/isoforest/pkg/detectors"
)

var (
	// ErrNotTrained is returned when scoring or saving before Fit or Load.
	ErrNotTrained = errors.New("model not trained")
	// ErrDimension is returned when a record does not match the training schema.
	ErrDimension = errors.New("record length does not match training data")
)

var _ detectors.StreamDetector = (*IsolationForest)(nil)

// IsolationForest implements unsupervised anomaly detection using isolation trees.
type IsolationForest struct {
	mu sync.RWMutex

	// Configuration
	nTrees        int
	sampleSize    int
	contamination float64
	threshold     float64
	seed          int64
	logger        *slog.Logger

	// Trained model
	header *dataset.Dataset
	trees  []*iTree

	// c(sampleSize), cached at training time
	norm float64
}

// Option configures an IsolationForest.
type Option func(*IsolationForest)

// WithTrees sets the number of isolation trees.
func WithTrees(n int) Option {
	return func(f *IsolationForest) {
		f.nTrees = n
	}
}

// WithSampleSize sets the subsample size for each tree.
func WithSampleSize(n int) Option {
	return func(f *IsolationForest) {
		f.sampleSize = n
	}
}

// WithContamination sets the expected proportion of anomalies. When positive,
// Fit sets the threshold to the matching percentile of training scores.
func WithContamination(c float64) Option {
	return func(f *IsolationForest) {
		f.contamination = c
	}
}

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(f *IsolationForest) {
		f.seed = seed
	}
}

// WithLogger sets the logger used during training.
func WithLogger(l *slog.Logger) Option {
	return func(f *IsolationForest) {
		f.logger = l
	}
}

// WithConfig applies a detectors.Config.
func WithConfig(c detectors.Config) Option {
	return func(f *IsolationForest) {
		f.nTrees = c.NumTrees
		f.sampleSize = c.SubsampleSize
		f.contamination = c.Contamination
		f.seed = c.RandomSeed
	}
}

// New creates a new IsolationForest with the given options.
func New(opts ...Option) *IsolationForest {
	def := detectors.DefaultConfig()
	f := &IsolationForest{
		nTrees:        def.NumTrees,
		sampleSize:    def.SubsampleSize,
		contamination: def.Contamination,
		threshold:     0.5,
		seed:          def.RandomSeed,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fit trains the Isolation Forest on the provided data. The dataset is
// neither modified nor retained.
func (f *IsolationForest) Fit(data *dataset.Dataset) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cfg := detectors.Config{
		NumTrees:      f.nTrees,
		SubsampleSize: f.sampleSize,
		Contamination: f.contamination,
		RandomSeed:    f.seed,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := dataset.CheckCapabilities(data); err != nil {
		return err
	}

	// Reduce subsample size if data is too small
	if data.Len() < f.sampleSize {
		f.logger.Info("reducing subsample size to dataset size",
			"subsample", f.sampleSize, "instances", data.Len())
		f.sampleSize = data.Len()
	}

	work := data.Copy()
	rng := rand.New(rand.NewSource(f.seed))
	height := maxHeight(f.sampleSize)

	trees := make([]*iTree, f.nTrees)
	for i := range trees {
		work.Shuffle(rng)
		sample := work.Subset(f.sampleSize)
		trees[i] = buildTree(sample.Rows, work.NumAttributes(), work.ClassIndex, height, rng)
	}

	f.trees = trees
	f.header = data.Header()
	f.norm = C(float64(f.sampleSize))

	f.logger.Debug("isolation forest built",
		"trees", f.nTrees, "subsample", f.sampleSize, "max_height", height)

	// Set threshold based on contamination
	if f.contamination > 0 {
		scores, err := f.predict(data.Rows)
		if err != nil {
			return err
		}
		f.threshold = percentile(scores, 100*(1-f.contamination))
		f.logger.Debug("threshold derived from contamination",
			"contamination", f.contamination, "threshold", f.threshold)
	}

	return nil
}

// Predict returns anomaly scores for the given records.
func (f *IsolationForest) Predict(records [][]float64) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.trees == nil {
		return nil, ErrNotTrained
	}

	return f.predict(records)
}

func (f *IsolationForest) predict(records [][]float64) ([]float64, error) {
	scores := make([]float64, len(records))

	for i, record := range records {
		score, err := f.predictOne(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		scores[i] = score
	}

	return scores, nil
}

// PredictOne returns the anomaly score for a single record.
func (f *IsolationForest) PredictOne(record []float64) (float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.trees == nil {
		return 0, ErrNotTrained
	}

	return f.predictOne(record)
}

func (f *IsolationForest) predictOne(record []float64) (float64, error) {
	avgPath, err := f.averagePathLength(record)
	if err != nil {
		return 0, err
	}

	// A single-record subsample carries no information.
	if f.norm == 0 {
		return 0.5, nil
	}

	// Anomaly score: 2^(-avgPath / c(n))
	// Higher score = more anomalous
	return math.Pow(2, -avgPath/f.norm), nil
}

// Distribution returns [score, 1-score]. The first slot is the anomaly class.
func (f *IsolationForest) Distribution(record []float64) ([]float64, error) {
	score, err := f.PredictOne(record)
	if err != nil {
		return nil, err
	}
	return []float64{score, 1 - score}, nil
}

// AveragePathLength returns the mean isolation path length of record over
// all trees.
func (f *IsolationForest) AveragePathLength(record []float64) (float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.trees == nil {
		return 0, ErrNotTrained
	}

	return f.averagePathLength(record)
}

func (f *IsolationForest) averagePathLength(record []float64) (float64, error) {
	if !checkRecord(f.header, record) {
		return 0, fmt.Errorf("%w: got %d values, want %d", ErrDimension, len(record), f.header.NumAttributes())
	}

	var totalPath float64
	for _, tree := range f.trees {
		totalPath += tree.pathLength(record)
	}
	return totalPath / float64(len(f.trees)), nil
}

// PredictStream processes records from a channel. Records that cannot be
// scored are dropped. It returns when input is closed or ctx is done.
func (f *IsolationForest) PredictStream(ctx context.Context, input <-chan []float64, output chan<- detectors.Score) error {
	f.mu.RLock()
	if f.trees == nil {
		f.mu.RUnlock()
		return ErrNotTrained
	}
	f.mu.RUnlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record, ok := <-input:
			if !ok {
				return nil
			}

			score, err := f.PredictOne(record)
			if err != nil {
				f.logger.Debug("dropping record", "error", err)
				continue
			}

			select {
			case output <- detectors.Score{
				Value:     score,
				IsAnomaly: score >= f.Threshold(),
				Features:  record,
			}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// String returns a short description of the model.
func (f *IsolationForest) String() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.trees == nil {
		return "No model built yet."
	}
	return fmt.Sprintf("Isolation forest for anomaly detection (%d, %d)", f.nTrees, f.sampleSize)
}

// NumTrees returns the configured number of trees.
func (f *IsolationForest) NumTrees() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.nTrees
}

// SampleSize returns the subsample size, as reduced by the last Fit.
func (f *IsolationForest) SampleSize() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sampleSize
}

// Header returns the schema of the training data, or nil before training.
func (f *IsolationForest) Header() *dataset.Dataset {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.header == nil {
		return nil
	}
	return f.header.Header()
}

// Threshold returns the current anomaly threshold.
func (f *IsolationForest) Threshold() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.threshold
}

// SetThreshold updates the anomaly threshold.
func (f *IsolationForest) SetThreshold(t float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threshold = t
}

// model is the gob payload written by Save.
type model struct {
	NumTrees      int
	SampleSize    int
	Contamination float64
	Threshold     float64
	Seed          int64
	Attributes    []dataset.Attribute
	ClassIndex    int
	Trees         []*iTree
}

// Save serializes the trained model.
func (f *IsolationForest) Save() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.trees == nil {
		return nil, ErrNotTrained
	}

	m := model{
		NumTrees:      f.nTrees,
		SampleSize:    f.sampleSize,
		Contamination: f.contamination,
		Threshold:     f.threshold,
		Seed:          f.seed,
		Attributes:    f.header.Attributes,
		ClassIndex:    f.header.ClassIndex,
		Trees:         f.trees,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&m); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}

	return buf.Bytes(), nil
}

// Load deserializes a trained model.
func (f *IsolationForest) Load(data []byte) error {
	var m model
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}
	if err := m.validate(); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nTrees = m.NumTrees
	f.sampleSize = m.SampleSize
	f.contamination = m.Contamination
	f.threshold = m.Threshold
	f.seed = m.Seed
	f.header = dataset.New(m.Attributes, m.ClassIndex)
	f.trees = m.Trees
	f.norm = C(float64(m.SampleSize))

	return nil
}

// validate checks that every tree in m can be walked by pathLength.
func (m *model) validate() error {
	if len(m.Trees) == 0 || m.SampleSize <= 0 {
		return errors.New("empty forest")
	}
	if len(m.Trees) != m.NumTrees {
		return fmt.Errorf("forest has %d trees, header says %d", len(m.Trees), m.NumTrees)
	}
	if m.ClassIndex < -1 || m.ClassIndex >= len(m.Attributes) {
		return fmt.Errorf("class index %d out of range", m.ClassIndex)
	}

	for i, t := range m.Trees {
		if t == nil || len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", i)
		}
		n := len(t.Nodes)
		for j, nd := range t.Nodes {
			if nd.isLeaf() {
				continue
			}
			if nd.Low <= 0 || nd.Low >= n || nd.High <= 0 || nd.High >= n {
				return fmt.Errorf("tree %d node %d: child index out of range", i, j)
			}
			// Children are appended after their parent.
			if nd.Low <= j || nd.High <= j {
				return fmt.Errorf("tree %d node %d: child precedes parent", i, j)
			}
			if nd.Attr < 0 || nd.Attr >= len(m.Attributes) || nd.Attr == m.ClassIndex {
				return fmt.Errorf("tree %d node %d: invalid split attribute %d", i, j, nd.Attr)
			}
		}
	}

	return nil
}

// percentile calculates the p-th percentile of the data.
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)-1) * p / 100)
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
