package querysql

import (
	"time"

	"chatdb-workers/internal/common/config"
)

const defaultMaxRows = 1000

type Config struct {
	Timeout time.Duration
	MaxRows int
}

func LoadConfig(cfg *config.Config) *Config {
	w := config.GetWorkerConfig(cfg, TaskType)
	maxRows := w.MaxRows
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}
	return &Config{
		Timeout: config.GetDuration(w.Timeout),
		MaxRows: maxRows,
	}
}
