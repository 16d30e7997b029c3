// Package config loads run configuration from YAML and merges in
// command-line overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every knob of a training run.
type Config struct {
	DataRoot      string  `yaml:"data_root"`
	Download      bool    `yaml:"download"`
	Epochs        int     `yaml:"epochs"`
	BatchSize     int     `yaml:"batch_size"`
	EvalBatchSize int     `yaml:"eval_batch_size"`
	NumWorkers    int     `yaml:"num_workers"`
	LR            float64 `yaml:"lr"`
	Momentum      float64 `yaml:"momentum"`
	LogEvery      int     `yaml:"log_every"`
	Seed          int64   `yaml:"seed"`
	CheckpointDir string  `yaml:"checkpoint_dir"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DataRoot:      "data",
		Download:      true,
		Epochs:        2,
		BatchSize:     4,
		EvalBatchSize: 4,
		NumWorkers:    2,
		LR:            0.001,
		Momentum:      0.9,
		LogEvery:      2000,
		Seed:          0,
		CheckpointDir: ".",
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Overrides carries the command-line flags that may replace file values.
// Zero values leave the file value in place.
type Overrides struct {
	DataRoot   string
	Epochs     int
	BatchSize  int
	NumWorkers int
	LR         float64
	LogEvery   int
	Seed       int64
}

// ApplyOverrides merges flag values into the configuration.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DataRoot != "" {
		c.DataRoot = o.DataRoot
	}
	if o.Epochs != 0 {
		c.Epochs = o.Epochs
	}
	if o.BatchSize != 0 {
		c.BatchSize = o.BatchSize
	}
	if o.NumWorkers != 0 {
		c.NumWorkers = o.NumWorkers
	}
	if o.LR != 0 {
		c.LR = o.LR
	}
	if o.LogEvery != 0 {
		c.LogEvery = o.LogEvery
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
}

// Validate rejects configurations that cannot produce a run.
func (c *Config) Validate() error {
	if c.DataRoot == "" {
		return fmt.Errorf("config: data_root must not be empty")
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("config: epochs must be > 0, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: batch_size must be > 0, got %d", c.BatchSize)
	}
	if c.EvalBatchSize <= 0 {
		return fmt.Errorf("config: eval_batch_size must be > 0, got %d", c.EvalBatchSize)
	}
	if c.NumWorkers < 0 {
		return fmt.Errorf("config: num_workers must be >= 0, got %d", c.NumWorkers)
	}
	if c.LR <= 0 {
		return fmt.Errorf("config: lr must be > 0, got %g", c.LR)
	}
	if c.Momentum < 0 || c.Momentum >= 1 {
		return fmt.Errorf("config: momentum must be in [0, 1), got %g", c.Momentum)
	}
	if c.LogEvery <= 0 {
		return fmt.Errorf("config: log_every must be > 0, got %d", c.LogEvery)
	}
	return nil
}
