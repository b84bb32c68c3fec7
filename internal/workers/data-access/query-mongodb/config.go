package querymongodb

import (
	"time"

	"chatdb-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	MaxRows int
}

func LoadConfig(cfg *config.Config) *Config {
	w := config.GetWorkerConfig(cfg, TaskType)
	maxRows := w.MaxRows
	if maxRows <= 0 {
		maxRows = 1000
	}
	return &Config{
		Timeout: config.GetDuration(w.Timeout),
		MaxRows: maxRows,
	}
}
