// cmd/test-worker/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"modeltest-workers/internal/augment"
	"modeltest-workers/internal/common/aws"
	"modeltest-workers/internal/common/camunda"
	"modeltest-workers/internal/common/config"
	"modeltest-workers/internal/common/database"
	"modeltest-workers/internal/common/logger"
	"modeltest-workers/internal/common/observability"
	"modeltest-workers/internal/evaluation"
	"modeltest-workers/internal/model"
	"modeltest-workers/internal/store"
	"modeltest-workers/internal/testgen"
	"modeltest-workers/internal/testrun"

	rmt "modeltest-workers/internal/workers/model-testing/run-model-test"
	str "modeltest-workers/internal/workers/model-testing/send-test-report"
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
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting model-test worker...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("test-worker")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zeebeClient := camundaClient.GetClient()
	zapLog.Info("Zeebe client connected successfully")

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

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Assemble the test pipeline ---
	trainingStore := store.NewPostgresStore(pg.DB)
	archive := store.NewElasticsearchArchive(esClient.Client, cfg.Reports.Index)

	paraphrase := augment.NewHTTPParaphraseClient(
		cfg.APIs.Paraphrase.URL,
		config.GetDuration(cfg.APIs.Paraphrase.Timeout),
		log,
	)

	var synonyms augment.SynonymLookup = augment.NewHTTPSynonymLookup(
		cfg.APIs.Synonyms.URL,
		config.GetDuration(cfg.APIs.Synonyms.Timeout),
	)
	if cfg.APIs.Synonyms.CacheTTL > 0 {
		synonyms = augment.NewCachedSynonymLookup(
			synonyms, redis,
			time.Duration(cfg.APIs.Synonyms.CacheTTL)*time.Second,
			log,
		)
	}

	augmenter := augment.NewAugmenter(paraphrase, synonyms, log)
	generator := testgen.NewGenerator(trainingStore, augmenter, cfg.Testing.WorkDir, cfg.Testing.Language, log)

	loader := model.NewServerLoader(
		cfg.Testing.ModelDir,
		cfg.APIs.ModelServer.BaseURL,
		config.GetDuration(cfg.APIs.ModelServer.Timeout),
		log,
	)

	runner := testrun.NewRunner(
		loader,
		generator,
		evaluation.NewNLUEvaluator(log),
		evaluation.NewStoryEvaluator(cfg.Testing.FallbackThreshold, log),
		cfg.Testing.WorkDir,
		log,
	)

	runLock := testrun.NewRunLock(redis, config.GetDuration(cfg.Testing.RunLockTTL), log)

	// --- Register workers ---
	var workers []*camunda.CamundaWorker

	if config.IsWorkerEnabled(cfg, rmt.TaskType) {
		wc := config.GetWorkerConfig(cfg, rmt.TaskType)

		workerCfg := rmt.DefaultConfig()
		workerCfg.Timeout = config.GetDuration(wc.Timeout)
		workerCfg.ReportIndex = cfg.Reports.Index

		handler := rmt.NewHandler(workerCfg, runner, runLock, archive, log)
		workers = append(workers, camunda.NewWorker(zeebeClient, rmt.TaskType, camunda.WorkerOptions{
			MaxJobsActive: wc.MaxJobsActive,
			Timeout:       config.GetDuration(wc.Timeout),
		}, handler, zapLog))
	}

	if config.IsWorkerEnabled(cfg, str.TaskType) {
		sesClient, err := aws.NewSESClient(ctx, cfg.Reports.AWS.Region)
		if err != nil {
			zapLog.Fatal("failed to create SES client", zap.Error(err))
		}
		snsClient, err := aws.NewSNSClient(ctx, cfg.Reports.AWS.Region)
		if err != nil {
			zapLog.Fatal("failed to create SNS client", zap.Error(err))
		}

		wc := config.GetWorkerConfig(cfg, str.TaskType)

		workerCfg := str.DefaultConfig()
		workerCfg.Timeout = config.GetDuration(wc.Timeout)
		workerCfg.EmailEnabled = cfg.Reports.Email.Enabled
		workerCfg.SMSEnabled = cfg.Reports.SMS.Enabled
		if cfg.Reports.Email.FromEmail != "" {
			workerCfg.FromAddress = cfg.Reports.Email.FromEmail
		}

		handler := str.NewHandler(workerCfg, sesClient, snsClient, log)
		workers = append(workers, camunda.NewWorker(zeebeClient, str.TaskType, camunda.WorkerOptions{
			MaxJobsActive: wc.MaxJobsActive,
			Timeout:       config.GetDuration(wc.Timeout),
		}, handler, zapLog))
	}

	zapLog.Info("All workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := camundaClient.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	for _, w := range workers {
		w.Stop()
	}

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Model-test worker stopped gracefully")
}
