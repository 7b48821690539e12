// cmd/sales-orchestrator/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"sales-orchestrator/internal/common/camunda"
	"sales-orchestrator/internal/common/config"
	"sales-orchestrator/internal/common/database"
	"sales-orchestrator/internal/common/events"
	"sales-orchestrator/internal/common/llm"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/common/observability"
	"sales-orchestrator/internal/sales/classifier"
	"sales-orchestrator/internal/sales/finance"
	"sales-orchestrator/internal/sales/leadscore"
	"sales-orchestrator/internal/sales/matching"
	"sales-orchestrator/internal/sales/memory"
	"sales-orchestrator/internal/sales/orchestrator"
	"sales-orchestrator/internal/sales/semanticindex"
	"sales-orchestrator/internal/storage/docstore"
	"sales-orchestrator/internal/storage/inventory"
	"sales-orchestrator/internal/storage/leads"
	"sales-orchestrator/internal/storage/vectorindex"
	"sales-orchestrator/internal/transport/httpapi"

	or "sales-orchestrator/internal/workers/conversation/orchestrate-response"
	sl "sales-orchestrator/internal/workers/crm/score-lead"
	lo "sales-orchestrator/internal/workers/finance/simulate-loan"
	iv "sales-orchestrator/internal/workers/inventory/index-vehicle"
	ml "sales-orchestrator/internal/workers/inventory/match-inventory-leads"
	ss "sales-orchestrator/internal/workers/inventory/semantic-search"
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
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOptions(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cfg.Logging.Output,
		Service: cfg.App.Name,
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting sales orchestrator...", zap.String("version", cfg.App.Version))

	obs, err := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
	})
	if err != nil {
		zapLog.Warn("observability partially initialized", zap.Error(err))
	}
	defer obs.Shutdown(context.Background())

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	checks := map[string]httpapi.Check{
		"postgres": pg.Ping,
		"redis":    rdb.Ping,
	}

	// --- Vector index ---
	var vectors vectorindex.Store
	switch cfg.VectorIndex.Backend {
	case "memory":
		vectors = vectorindex.NewMemoryStore(cfg.VectorIndex.Dimensions)
		zapLog.Warn("using in-memory vector index; embeddings are lost on restart")
	default:
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
		esStore := vectorindex.NewElasticsearchStore(esClient.Client, cfg.VectorIndex.Index, cfg.VectorIndex.Dimensions)
		if err := esStore.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("failed to ensure vector index", zap.Error(err))
		}
		vectors = esStore
		checks["elasticsearch"] = esClient.Ping
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Generative capabilities ---
	generator, err := llm.NewGenerator(ctx, cfg.GenAI)
	if err != nil {
		zapLog.Fatal("generator init failed", zap.Error(err))
	}
	embedder, err := llm.NewEmbedder(ctx, cfg.GenAI)
	if err != nil {
		zapLog.Fatal("embedder init failed", zap.Error(err))
	}

	// --- Events ---
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, config.GetDuration(cfg.Kafka.WriteTimeout), log)
		zapLog.Info("Kafka publisher configured", zap.Strings("brokers", cfg.Kafka.Brokers))
	}
	defer publisher.Close()

	// --- Domain services ---
	inventoryRepo := inventory.NewRepository(pg.DB, rdb.Client, config.GetDuration(cfg.Inventory.CacheTTL), log)
	leadRepo := leads.NewRepository(pg.DB)
	memoryService := memory.NewService(
		docstore.NewRedisStore(rdb.Client, cfg.Memory.MaxRetries),
		cfg.Memory.Collection,
		cfg.Memory.MaxNotes,
		log,
	)
	simulator := finance.NewSimulator(finance.DefaultTables())
	scorer := leadscore.NewEngine(leadscore.DefaultRules())
	index := semanticindex.NewService(embedder, vectors, cfg.VectorIndex.DefaultLimit, log)
	matcher := matching.NewMatcher(leadRepo, matching.DefaultRules(), log)

	eventTopic := ""
	if cfg.Kafka.Enabled {
		eventTopic = cfg.Kafka.OrchestrationTopic
	}
	orch := orchestrator.NewService(orchestrator.Dependencies{
		Generator:  generator,
		Classifier: classifier.New(generator, log),
		Simulator:  simulator,
		Memory:     memoryService,
		Publisher:  publisher,
		EventTopic: eventTopic,
	}, cfg.Orchestrator, log)
	resolver := orchestrator.NewResolver(leadRepo, inventoryRepo, log)

	// --- Handlers shared by workers and the HTTP API ---
	respondHandler := or.NewHandler(or.ConfigFromApp(cfg), orch, resolver, log)
	scoreHandler := sl.NewHandler(sl.ConfigFromApp(cfg), scorer, publisher, log)
	loanHandler := lo.NewHandler(lo.ConfigFromApp(cfg), simulator, log)
	searchHandler := ss.NewHandler(ss.ConfigFromApp(cfg), index, log)
	indexHandler := iv.NewHandler(iv.ConfigFromApp(cfg), inventoryRepo, index, matcher, log)
	matchHandler := ml.NewHandler(ml.ConfigFromApp(cfg), inventoryRepo, matcher, log)

	// --- Camunda workers ---
	var workers []*camunda.CamundaWorker
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: cfg.Camunda.Plaintext,
				ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		checks["zeebe"] = zeebe.HealthCheck
		zapLog.Info("Zeebe client connected successfully")

		handlers := []struct {
			taskType string
			handle   worker.JobHandler
		}{
			{or.TaskType, respondHandler.Handle},
			{sl.TaskType, scoreHandler.Handle},
			{lo.TaskType, loanHandler.Handle},
			{ss.TaskType, searchHandler.Handle},
			{iv.TaskType, indexHandler.Handle},
			{ml.TaskType, matchHandler.Handle},
		}
		for _, h := range handlers {
			w := camunda.StartWorker(zeebe.GetClient(), h.taskType, config.GetWorkerConfig(cfg, h.taskType), h.handle, obs, log)
			if w != nil {
				workers = append(workers, w)
			}
		}
		zapLog.Info("Workers registered", zap.Int("count", len(workers)))
	}

	// --- HTTP API ---
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Responder:      respondHandler,
		Scorer:         scoreHandler,
		Simulator:      loanHandler,
		Searcher:       searchHandler,
		Recorder:       obs,
		Checks:         checks,
		RequestTimeout: config.GetDuration(config.GetWorkerConfig(cfg, or.TaskType).Timeout),
		Logger:         log,
	})
	server := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	// memory writes and events still in flight
	orch.Wait()

	zapLog.Info("Sales orchestrator stopped")
}
