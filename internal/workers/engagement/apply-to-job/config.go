package applytojob

import "ergasia-workers/internal/common/config"

type Config struct {
	Worker config.WorkerConfig
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{Worker: config.GetWorkerConfig(cfg, TaskType)}
}
