// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"xtenda-workers/internal/applications"
	awsclient "xtenda-workers/internal/common/aws"
	"xtenda-workers/internal/common/camunda"
	"xtenda-workers/internal/common/config"
	"xtenda-workers/internal/common/database"
	"xtenda-workers/internal/common/logger"
	"xtenda-workers/internal/common/observability"
	"xtenda-workers/internal/httpapi"
	"xtenda-workers/internal/schedule"

	// Pricing workers
	clq "xtenda-workers/internal/workers/loan/compute-loan-quote"
	urs "xtenda-workers/internal/workers/loan/update-repayment-schedule"

	// Application workers
	cas "xtenda-workers/internal/workers/application/check-application-status"
	clr "xtenda-workers/internal/workers/application/create-loan-application-record"
	dla "xtenda-workers/internal/workers/application/delete-loan-application"
	sla "xtenda-workers/internal/workers/application/search-loan-applications"
	uas "xtenda-workers/internal/workers/application/update-application-status"
	vla "xtenda-workers/internal/workers/application/validate-loan-application"

	// Communication workers
	ssn "xtenda-workers/internal/workers/communication/send-status-notification"
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

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(observability.Settings{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
	}, log)

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		RetryConfig: &camunda.RetryConfig{
			MaxRetries: 10,
			BaseDelay:  2 * time.Second,
			MaxDelay:   30 * time.Second,
		},
	}, zapLog)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}

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

	// --- Shared domain services ---
	scheduleRepo := schedule.NewRepository(pg.DB, redis.Client, schedule.Options{
		CacheKey: cfg.Loan.ScheduleCacheKey,
		CacheTTL: config.GetDuration(cfg.Loan.ScheduleCacheTTL),
		Tenures:  cfg.Loan.SupportedTenures,
	}, log)

	store := applications.NewStore(pg.DB)
	indexer := applications.NewIndexer(esClient.Client, cfg.Loan.ApplicationsIndex)
	statusCache := applications.NewStatusCache(redis.Client, config.GetDuration(cfg.Loan.StatusCacheTTL))

	if err := indexer.EnsureIndex(ctx); err != nil {
		// Search degrades to INDEX_NOT_FOUND; everything else keeps working.
		zapLog.Error("failed to ensure applications index", zap.String("index", indexer.IndexName()), zap.Error(err))
	}

	// --- AWS messaging clients ---
	var (
		sesClient awsclient.SESService
		snsClient awsclient.SNSService
	)
	aws := cfg.Integrations.AWS
	if aws.SES.Enabled || aws.SNS.Enabled {
		awsCfg, err := awsclient.LoadConfig(ctx, aws.Region)
		if err != nil {
			zapLog.Fatal("aws config load failed", zap.Error(err))
		}
		if aws.SES.Enabled {
			sesClient = awsclient.NewSESClient(awsCfg)
		}
		if aws.SNS.Enabled {
			snsClient = awsclient.NewSNSClient(awsCfg)
		}
		zapLog.Info("AWS clients initialized",
			zap.String("region", aws.Region),
			zap.Bool("ses", aws.SES.Enabled),
			zap.Bool("sns", aws.SNS.Enabled),
		)
	}

	// --- Register workers ---
	zbc := zeebe.GetClient()
	var workers []worker.JobWorker
	start := func(taskType string, handle camunda.HandlerFunc) {
		if jw := camunda.StartWorker(zbc, taskType, config.GetWorkerConfig(cfg, taskType), handle, obs, zapLog); jw != nil {
			workers = append(workers, jw)
		}
	}

	// --- 1. Pricing Workers (2) ---
	{
		c := clq.LoadConfig()
		c.SupportedTenures = cfg.Loan.SupportedTenures
		c.MinAmount, c.MaxAmount = cfg.Loan.MinAmount, cfg.Loan.MaxAmount
		start(clq.TaskType, clq.NewHandler(c, scheduleRepo, log).Handle)
	}
	{
		c := urs.LoadConfig()
		start(urs.TaskType, urs.NewHandler(c, scheduleRepo, log).Handle)
	}

	// --- 2. Application Workers (6) ---
	{
		c := vla.LoadConfig()
		c.SupportedTenures = cfg.Loan.SupportedTenures
		c.MinAmount, c.MaxAmount = cfg.Loan.MinAmount, cfg.Loan.MaxAmount
		start(vla.TaskType, vla.NewHandler(c, log).Handle)
	}
	{
		c := clr.LoadConfig()
		start(clr.TaskType, clr.NewHandler(c, store, indexer, statusCache, log).Handle)
	}
	{
		c := uas.LoadConfig()
		start(uas.TaskType, uas.NewHandler(c, store, indexer, statusCache, log).Handle)
	}
	{
		c := cas.LoadConfig()
		start(cas.TaskType, cas.NewHandler(c, store, statusCache, log).Handle)
	}
	{
		c := sla.LoadConfig()
		start(sla.TaskType, sla.NewHandler(c, indexer, log).Handle)
	}
	{
		c := dla.LoadConfig()
		start(dla.TaskType, dla.NewHandler(c, store, indexer, statusCache, log).Handle)
	}

	// --- 3. Communication Workers (1) ---
	{
		c := ssn.ConfigFromApp(cfg)
		start(ssn.TaskType, ssn.NewHandler(c, sesClient, snsClient, log).Handle)
	}
	zapLog.Info("Workers registered", zap.Int("open", len(workers)))

	// --- Health, Metrics & Pricing API ---
	api := httpapi.NewServer(scheduleRepo, httpapi.Options{
		SupportedTenures: cfg.Loan.SupportedTenures,
		MinAmount:        cfg.Loan.MinAmount,
		MaxAmount:        cfg.Loan.MaxAmount,
	}, map[string]httpapi.Check{
		"zeebe":    zeebe.HealthCheck,
		"postgres": pg.Ping,
		"redis":    redis.Ping,
		"elasticsearch": func(context.Context) error {
			return esClient.Ping()
		},
	}, log)

	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, jw := range workers {
		jw.Close()
		jw.AwaitClose()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing telemetry", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
