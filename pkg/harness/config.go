package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML run configuration.
func LoadConfig(path string) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("harness: read config: %w", err)
	}

	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, fmt.Errorf("harness: parse config %s: %w", path, err)
	}

	if len(cfg.Datasets) == 0 {
		return RunConfig{}, fmt.Errorf("harness: config %s declares no datasets", path)
	}
	for i, ds := range cfg.Datasets {
		if ds.ID == "" {
			return RunConfig{}, fmt.Errorf("harness: config %s: dataset %d has no id", path, i)
		}
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./runs"
	}
	return cfg, nil
}
