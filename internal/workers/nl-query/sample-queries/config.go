package samplequeries

import (
	"time"

	"chatdb-workers/internal/common/config"
	"chatdb-workers/internal/models"
)

type Config struct {
	Timeout        time.Duration
	MaxCount       int
	DefaultBackend models.Backend
	DefaultTarget  string
}

func LoadConfig(cfg *config.Config) *Config {
	backend, err := models.ParseBackend(cfg.Translator.DefaultBackend)
	if err != nil {
		backend = models.BackendSQL
	}
	w := config.GetWorkerConfig(cfg, TaskType)
	maxCount := w.MaxRows
	if maxCount <= 0 {
		maxCount = 100
	}
	return &Config{
		Timeout:        config.GetDuration(w.Timeout),
		MaxCount:       maxCount,
		DefaultBackend: backend,
		DefaultTarget:  cfg.Translator.DefaultTarget,
	}
}
