// Package config handles loading and validation of resampled.yaml for the
// standalone server.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/datakite/resampled/internal/metastore"
	"github.com/datakite/resampled/internal/objectstore"
	"github.com/datakite/resampled/internal/orchestrator"
)

// Config is the standalone-server configuration.
type Config struct {
	Server struct {
		Addr   string `yaml:"addr"`
		APIKey string `yaml:"apiKey"`
	} `yaml:"server"`

	TopicARN         string `yaml:"topicArn"`
	ResamplerBaseURL string `yaml:"resamplerBaseUrl"`

	Metastore    metastore.Config    `yaml:"metastore"`
	ObjectStore  objectstore.Config  `yaml:"objectStore"`
	Orchestrator orchestrator.Config `yaml:"orchestrator"`
}

// Load reads and parses resampled.yaml from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "resampled.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.TopicARN == "" {
		return fmt.Errorf("topicArn is required")
	}
	if cfg.Metastore.TableName == "" {
		return fmt.Errorf("metastore.tableName is required")
	}
	if cfg.Orchestrator.RawBucket == "" {
		return fmt.Errorf("orchestrator.rawBucket is required")
	}
	if cfg.Orchestrator.ResampledBucket == "" {
		return fmt.Errorf("orchestrator.resampledBucket is required")
	}
	return nil
}
