package reconcilesaga

import "ergasia-workers/internal/common/config"

type Config struct {
	Worker config.WorkerConfig
	// BatchSize bounds one pass when the job names no record.
	BatchSize int
}

func LoadConfig(cfg *config.Config) *Config {
	batch := cfg.Reconcile.BatchSize
	if batch <= 0 {
		batch = 50
	}
	return &Config{Worker: config.GetWorkerConfig(cfg, TaskType), BatchSize: batch}
}
