// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ergasia-workers/internal/alert"
	"ergasia-workers/internal/audit"
	"ergasia-workers/internal/common/aws"
	"ergasia-workers/internal/common/camunda"
	"ergasia-workers/internal/common/config"
	"ergasia-workers/internal/common/database"
	httpclient "ergasia-workers/internal/common/http"
	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/common/observability"
	"ergasia-workers/internal/orchestrator"
	"ergasia-workers/internal/reconcile"
	"ergasia-workers/internal/services/applier"
	"ergasia-workers/internal/services/inbox"
	"ergasia-workers/internal/services/invitation"
	"ergasia-workers/internal/services/job"
	"ergasia-workers/internal/services/jobtransaction"
	"ergasia-workers/internal/services/submission"
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
	exportPath := flag.String("export-registry", "", "write the activity registry to this path and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	reg, err := catalogue(cfg)
	if err != nil {
		zapLog.Fatal("activity catalogue is invalid", zap.Error(err))
	}
	if *exportPath != "" {
		if err := reg.Save(*exportPath); err != nil {
			zapLog.Fatal("registry export failed", zap.Error(err))
		}
		zapLog.Info("Activity registry written", zap.String("path", *exportPath), zap.Int("activities", len(reg.Activities)))
		return
	}

	zapLog.Info("Starting worker manager...", zap.String("version", cfg.App.Version), zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()
	if cfg.Tracing.Enabled {
		if err := obs.EnableTracing(cfg.Tracing, cfg.App.Version); err != nil {
			zapLog.Warn("tracing disabled", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Zeebe ---
	zeebeCfg := camunda.ConfigFrom(cfg.Camunda)
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(zeebeCfg)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL: reconciliation ledger ---
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

	ledger := reconcile.NewStore(pg.DB)
	if err := ledger.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("reconciliation schema failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis: job cache. Optional, reads fall through to the Job service. ---
	rdb := database.NewRedis(cfg.Database.Redis)
	defer rdb.Close()
	redisUp := retryWithBackoff(func() error { return rdb.Ping(ctx) }, 3, time.Second, zapLog, "Redis connection") == nil
	if !redisUp {
		zapLog.Warn("redis unavailable, job cache disabled")
	}

	// --- Elasticsearch: saga audit trail. Optional. ---
	var auditor orchestrator.Auditor
	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err == nil {
		err = retryWithBackoff(func() error { return esClient.Ping(ctx) }, 3, time.Second, zapLog, "Elasticsearch connection")
	}
	if err != nil {
		zapLog.Warn("elasticsearch unavailable, saga audit disabled", zap.Error(err))
	} else {
		auditor = audit.NewIndexer(esClient.Client, cfg.Database.Elasticsearch.AuditIndex, log)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- AWS: operator alerts and inbox fan-out ---
	var (
		alerter   orchestrator.Alerter
		publisher orchestrator.Publisher
	)
	if cfg.Alerts.Email.Enabled || cfg.Notifications.SNS.Enabled {
		awsCfg, err := aws.LoadConfig(ctx, cfg.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config failed", zap.Error(err))
		}
		if cfg.Alerts.Email.Enabled {
			alerter = alert.NewEmailAlerter(aws.NewSESClient(awsCfg), cfg.Alerts.Email.FromEmail, cfg.Alerts.Email.To)
		}
		if cfg.Notifications.SNS.Enabled {
			publisher = alert.NewPublisher(aws.NewSNSClient(awsCfg), cfg.Notifications.SNS.TopicARN)
		}
	}

	// --- Backend services ---
	svc := cfg.Services
	jobClient := job.New(httpclient.NewClient(httpclient.OptionsFor("job", svc.Job)))
	var jobs orchestrator.JobService = jobClient
	if redisUp {
		jobs = job.NewCachedClient(jobClient, rdb.Client, config.GetDuration(cfg.Database.Redis.JobCacheTTL), log)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Jobs:        jobs,
		Appliers:    applier.New(httpclient.NewClient(httpclient.OptionsFor("applier", svc.Applier))),
		Invitations: invitation.New(httpclient.NewClient(httpclient.OptionsFor("invitation", svc.Invitation))),
		Roster:      jobtransaction.New(httpclient.NewClient(httpclient.OptionsFor("job_transaction", svc.JobTransaction))),
		Submissions: submission.New(httpclient.NewClient(httpclient.OptionsFor("submission", svc.Submission))),
		Inbox:       inbox.New(httpclient.NewClient(httpclient.OptionsFor("inbox", svc.Inbox))),
		Ledger:      ledger,
		Auditor:     auditor,
		Alerter:     alerter,
		Publisher:   publisher,
		Logger:      log,
	}, orchestrator.Config{MaxReplayAttempts: cfg.Reconcile.MaxAttempts})

	// --- Workers ---
	workers := camunda.NewWorkers(zeebe.GetClient(), log)
	for _, a := range activities {
		h := a.newHandler(cfg, orch, log, camunda.WithRecorder(obs), camunda.WithRetryConfig(zeebeCfg.RetryConfig))
		workers.Start(a.taskType, config.GetWorkerConfig(cfg, a.taskType), h)
	}
	zapLog.Info("Workers registered", zap.Strings("taskTypes", workers.TaskTypes()))

	go runReconcileLoop(ctx, orch, cfg.Reconcile, log)

	// --- Health, readiness, metrics ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "healthy", "workers": len(workers.TaskTypes())})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, done := context.WithTimeout(r.Context(), 3*time.Second)
		defer done()
		checks := map[string]string{"zeebe": "ok", "postgres": "ok"}
		status := http.StatusOK
		if err := zeebe.HealthCheck(checkCtx); err != nil {
			checks["zeebe"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := pg.Ping(checkCtx); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, checks)
	})
	mux.HandleFunc("/activities", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, reg)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Health.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health server listening", zap.String("address", cfg.Health.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("health server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	zapLog.Info("Shutting down", zap.String("signal", sig.String()))

	cancel()
	workers.Stop()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("health server shutdown", zap.Error(err))
	}
	zapLog.Info("Worker manager stopped")
}

// runReconcileLoop replays open reconciliation records every interval until
// ctx is cancelled. An interval of zero leaves reconciliation to the
// reconcile-saga worker.
func runReconcileLoop(ctx context.Context, orch *orchestrator.Orchestrator, cfg config.ReconcileConfig, log logger.Logger) {
	interval := config.GetDuration(cfg.Interval)
	if interval <= 0 {
		return
	}
	log = log.WithFields(map[string]interface{}{"component": "reconcile-loop"})
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary, err := orch.ReconcilePending(ctx, cfg.BatchSize)
			if err != nil {
				log.Error("Reconciliation pass failed", map[string]interface{}{"error": err.Error()})
				continue
			}
			if summary.Scanned > 0 {
				log.Info("Reconciliation pass", map[string]interface{}{
					"scanned":   summary.Scanned,
					"resolved":  summary.Resolved,
					"dismissed": summary.Dismissed,
					"pending":   summary.Pending,
					"manual":    summary.Manual,
				})
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
