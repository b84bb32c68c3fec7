// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"chatdb-workers/internal/common/cache"
	"chatdb-workers/internal/common/camunda"
	"chatdb-workers/internal/common/config"
	"chatdb-workers/internal/common/database"
	"chatdb-workers/internal/common/logger"
	"chatdb-workers/internal/common/observability"

	qe "chatdb-workers/internal/workers/data-access/query-elasticsearch"
	qm "chatdb-workers/internal/workers/data-access/query-mongodb"
	qs "chatdb-workers/internal/workers/data-access/query-sql"
	sq "chatdb-workers/internal/workers/nl-query/sample-queries"
	tq "chatdb-workers/internal/workers/nl-query/translate-query"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(observability.Config{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
		SampleRatio:    cfg.Observability.SampleRatio,
	})
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully", zap.String("gateway", cfg.Camunda.BrokerAddress))

	tr, err := cfg.NewTranslator()
	if err != nil {
		zapLog.Fatal("translator setup failed", zap.Error(err))
	}

	// --- Redis result cache ---
	var resultCache *cache.ResultCache
	if cfg.Cache.Enabled {
		rdb := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		resultCache = cache.New(rdb.Client, cfg.Cache.KeyPrefix, cfg.CacheTTL())
		zapLog.Info("Redis result cache enabled", zap.Duration("ttl", cfg.CacheTTL()))
	}

	registry := camunda.NewRegistry(zeebe.GetClient(), log)
	readiness := map[string]func(context.Context) error{}

	registry.Start(tq.TaskType, config.GetWorkerConfig(cfg, tq.TaskType),
		tq.NewHandler(tq.LoadConfig(cfg), tr, obs, log))
	registry.Start(sq.TaskType, config.GetWorkerConfig(cfg, sq.TaskType),
		sq.NewHandler(sq.LoadConfig(cfg), tr, log))

	// --- SQL ---
	if cfg.Database.SQL.Enabled && config.IsWorkerEnabled(cfg, qs.TaskType) {
		var sqlClient *database.SQLClient
		err = retryWithBackoff(func() error {
			var err error
			sqlClient, err = database.NewSQL(cfg.Database.SQL)
			if err != nil {
				return err
			}
			return sqlClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "SQL connection")
		if err != nil {
			zapLog.Fatal("sql database failed after retries", zap.Error(err))
		}
		defer sqlClient.Close()
		zapLog.Info("SQL database connected successfully", zap.String("driver", cfg.Database.SQL.Driver))

		readiness["sql"] = sqlClient.Ping
		registry.Start(qs.TaskType, config.GetWorkerConfig(cfg, qs.TaskType),
			qs.NewHandler(qs.LoadConfig(cfg), sqlClient.DB, sqlClient.Dialect, resultCache, log))
	}

	// --- MongoDB ---
	if cfg.Database.MongoDB.Enabled && config.IsWorkerEnabled(cfg, qm.TaskType) {
		var mongoClient *database.MongoClient
		err = retryWithBackoff(func() error {
			var err error
			mongoClient, err = database.NewMongo(ctx, cfg.Database.MongoDB)
			if err != nil {
				return err
			}
			return mongoClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "MongoDB connection")
		if err != nil {
			zapLog.Fatal("mongodb failed after retries", zap.Error(err))
		}
		defer mongoClient.Close(context.Background())
		zapLog.Info("MongoDB connected successfully", zap.String("database", cfg.Database.MongoDB.Database))

		readiness["mongodb"] = mongoClient.Ping
		registry.Start(qm.TaskType, config.GetWorkerConfig(cfg, qm.TaskType),
			qm.NewHandler(qm.LoadConfig(cfg), mongoClient, resultCache, log))
	}

	// --- Elasticsearch ---
	if cfg.Database.Elasticsearch.Enabled && config.IsWorkerEnabled(cfg, qe.TaskType) {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")

		readiness["elasticsearch"] = esClient.Ping
		registry.Start(qe.TaskType, config.GetWorkerConfig(cfg, qe.TaskType),
			qe.NewHandler(qe.LoadConfig(cfg), esClient.Client, resultCache, log))
	}

	taskTypes := registry.TaskTypes()
	sort.Strings(taskTypes)
	zapLog.Info("Workers registered", zap.Strings("taskTypes", taskTypes))

	// --- Health & Metrics Server ---
	srv := &http.Server{Addr: cfg.App.HTTPAddress, Handler: newMux(taskTypes, readiness)}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.App.HTTPAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	registry.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func newMux(taskTypes []string, readiness map[string]func(context.Context) error) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"workers": taskTypes,
			"time":    time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "ready", http.StatusOK
		checks := map[string]string{}
		for name, ping := range readiness {
			if err := ping(ctx); err != nil {
				checks[name] = err.Error()
				status, code = "not ready", http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		writeJSON(w, code, map[string]interface{}{
			"status": status,
			"checks": checks,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
