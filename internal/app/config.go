package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	WorkflowPath string // hcl files describing the job DAG
	ModulesPath  string // hcl manifests + compiled Go handlers

	EnvFile  string // shared run environment file, written once per run
	CacheDir string // on-disk cache for downloaded reference archives

	LogFormat   string
	LogLevel    string
	StatusPort  int
	WorkerCount int
}

// NewConfig validates a Config value.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
