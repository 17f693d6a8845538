package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hed1ad/isoforest/pkg/detectors"
)

// forestFlags holds the forest settings given on the command line.
type forestFlags struct {
	trees         int
	subsample     int
	seed          int64
	contamination float64
}

func (f *forestFlags) register(cmd *cobra.Command) {
	def := detectors.DefaultConfig()
	fl := cmd.Flags()
	fl.IntVar(&f.trees, "trees", def.NumTrees, "number of trees in the forest")
	fl.IntVar(&f.subsample, "subsample", def.SubsampleSize, "subsample size for each tree")
	fl.Int64Var(&f.seed, "seed", def.RandomSeed, "random seed")
	fl.Float64Var(&f.contamination, "contamination", def.Contamination,
		"expected anomaly proportion used to derive the threshold (0 keeps 0.5)")
}

// loadConfig merges defaults, the optional YAML file and explicitly set
// flags, in increasing order of precedence.
func loadConfig(path string, cmd *cobra.Command, flags *forestFlags) (detectors.Config, error) {
	cfg := detectors.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	fl := cmd.Flags()
	if fl.Changed("trees") {
		cfg.NumTrees = flags.trees
	}
	if fl.Changed("subsample") {
		cfg.SubsampleSize = flags.subsample
	}
	if fl.Changed("seed") {
		cfg.RandomSeed = flags.seed
	}
	if fl.Changed("contamination") {
		cfg.Contamination = flags.contamination
	}

	return cfg, cfg.Validate()
}
