package translatequery

import (
	"time"

	"chatdb-workers/internal/common/config"
	"chatdb-workers/internal/models"
)

type Config struct {
	Timeout        time.Duration
	DefaultBackend models.Backend
	DefaultTarget  string
}

func LoadConfig(cfg *config.Config) *Config {
	backend, err := models.ParseBackend(cfg.Translator.DefaultBackend)
	if err != nil {
		backend = models.BackendSQL
	}
	return &Config{
		Timeout:        config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		DefaultBackend: backend,
		DefaultTarget:  cfg.Translator.DefaultTarget,
	}
}
