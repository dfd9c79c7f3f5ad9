// Command sqlagentd runs the NL-to-SQL dispatch and orchestration core:
// it wires the Cache Layer, Schema Catalog, LM Client, Correction Graph,
// SQL Agent, Task Dispatcher, Scheduler, and Result/Session stores
// together and serves the thin HTTP submission boundary over them.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tarsy-labs/sqlagent-core/pkg/api"
	"github.com/tarsy-labs/sqlagent-core/pkg/cache"
	"github.com/tarsy-labs/sqlagent-core/pkg/config"
	"github.com/tarsy-labs/sqlagent-core/pkg/connector"
	"github.com/tarsy-labs/sqlagent-core/pkg/correction"
	"github.com/tarsy-labs/sqlagent-core/pkg/llm"
	"github.com/tarsy-labs/sqlagent-core/pkg/models"
	"github.com/tarsy-labs/sqlagent-core/pkg/queue"
	"github.com/tarsy-labs/sqlagent-core/pkg/resultstore"
	"github.com/tarsy-labs/sqlagent-core/pkg/schema"
	"github.com/tarsy-labs/sqlagent-core/pkg/scheduler"
	"github.com/tarsy-labs/sqlagent-core/pkg/session"
	"github.com/tarsy-labs/sqlagent-core/pkg/sqlagent"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := config.LoadDotEnv(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	}

	cfg, err := config.Load(filepath.Join(*configDir, "config.yaml"))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.URL})
	defer redisClient.Close()
	cacheLayer := cache.NewRedisCache(redisClient)

	pgPool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pgPool.Close()
	conn := connector.NewPostgresConnector(pgPool)

	catalog := schema.NewCatalog(conn, cacheLayer, cfg.Cache.SchemaCacheTTL)

	lmClient := llm.NewClient(llm.Config{
		Model:              cfg.LM.Model,
		APIKey:             cfg.LM.AuthHeader,
		BaseURL:            cfg.LM.APIBase,
		RequestsPerMinute:  float64(cfg.LM.RequestsPerMinute),
		CallTimeout:        cfg.LM.CallTimeout,
		CacheTTL:           cfg.Cache.LLMCacheTTL,
		MaxRetries:         cfg.LM.MaxRetries,
		BaseBackoff:        cfg.LM.BaseBackoff,
		MaxBackoff:         cfg.LM.MaxBackoff,
		BreakerMaxFailures: cfg.LM.BreakerMaxFailures,
		BreakerCooldown:    cfg.LM.BreakerCooldown,
	}, cacheLayer)

	graph := correction.NewGraph(conn, lmClient, correction.DefaultMaxAttempts, cfg.Dispatcher.TaskTimeLimit)

	sessionStore := session.NewStore(cacheLayer, cfg.Session.SessionTTL, cfg.Session.HistoryLimit)
	memory := session.NewMemory(sessionStore)

	agent := sqlagent.New(catalog, lmClient, graph, memory, cacheLayer, sqlagent.Config{
		AnswerCacheTTL:     cfg.Cache.QueryCacheTTL,
		SuggestionCacheTTL: cfg.Cache.SuggestionCacheTTL,
		HistoryLimit:       cfg.Session.HistoryLimit,
		ExecuteTimeout:     cfg.Dispatcher.TaskTimeLimit,
		MaxCorrectionTries: correction.DefaultMaxAttempts,
	})

	results := resultstore.NewStore(cacheLayer, cfg.Dispatcher.TaskTimeLimit, time.Hour)

	workerPool := queue.NewWorkerPool(workerPoolConfig(cfg), agent, results)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	schedulerSvc := scheduler.NewService(scheduler.Config{
		RefreshInterval: cfg.Cache.SchemaCacheTTL,
		LockTTLFactor:   2,
	}, catalog, cacheLayer, uuid.NewString())
	schedulerSvc.Start(ctx)
	defer schedulerSvc.Stop()

	server := api.NewServer(workerPool, results, agent, cfg.API, cfg.Dispatcher.TaskSoftTimeLimit, cfg.Dispatcher.TaskTimeLimit)

	slog.Info("sqlagentd starting", "addr", cfg.API.ListenAddr)
	go func() {
		if err := server.Router().Run(cfg.API.ListenAddr); err != nil {
			slog.Error("http server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("sqlagentd shutting down")
}

// workerPoolConfig derives per-pool worker counts and queue depths from
// the dispatcher config, scaling queue depth off WorkerPrefetchMultiplier
// the way Celery-style prefetch tuning does in the original system.
func workerPoolConfig(cfg *config.Config) queue.Config {
	workers := map[models.Pool]int{
		models.PoolSimple:   cfg.Dispatcher.SimpleWorkers,
		models.PoolStandard: cfg.Dispatcher.StandardWorkers,
		models.PoolComplex:  cfg.Dispatcher.ComplexWorkers,
	}
	depths := make(map[models.Pool]int, len(workers))
	multiplier := cfg.Dispatcher.WorkerPrefetchMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	for pool, n := range workers {
		depths[pool] = n * multiplier
	}
	return queue.Config{
		WorkerCounts: workers,
		QueueDepths:  depths,
		MaxRetries:   cfg.Dispatcher.MaxRetries,
		RetryBackoff: cfg.Dispatcher.RetryBackoff,
	}
}
