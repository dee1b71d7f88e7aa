package camunda

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ergasia-workers/internal/common/config"
	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// reportTimeout bounds the complete/fail commands sent after a job ran.
const reportTimeout = 10 * time.Second

// JobFunc executes one job given its raw variables and returns the
// variables to complete it with.
type JobFunc func(ctx context.Context, variables string) (interface{}, error)

// Recorder receives per-job telemetry. *observability.Observability
// implements it.
type Recorder interface {
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

// JobRunner is the per-job envelope every worker handler runs inside:
// timeout, metrics, span, completion and error reporting.
type JobRunner struct {
	taskType      string
	timeout       time.Duration
	nonIdempotent bool
	retry         *RetryConfig
	recorder      Recorder
	errors        *errors.ErrorHandler
	logger        logger.Logger
}

type RunnerOption func(*JobRunner)

// NonIdempotent stops the runner from asking Zeebe to retry the job. Used
// where a blind retry could repeat a money movement.
func NonIdempotent() RunnerOption {
	return func(r *JobRunner) { r.nonIdempotent = true }
}

func WithRecorder(rec Recorder) RunnerOption {
	return func(r *JobRunner) { r.recorder = rec }
}

func WithRetryConfig(rc *RetryConfig) RunnerOption {
	return func(r *JobRunner) { r.retry = rc }
}

func NewJobRunner(taskType string, wcfg config.WorkerConfig, log logger.Logger, opts ...RunnerOption) *JobRunner {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r := &JobRunner{
		taskType: taskType,
		timeout:  timeout,
		retry:    DefaultRetryConfig,
		logger:   log.WithFields(map[string]interface{}{"taskType": taskType}),
	}
	r.errors = errors.NewErrorHandler(r.logger)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *JobRunner) TaskType() string { return r.taskType }

// Run executes fn for job and reports the result to Zeebe.
func (r *JobRunner) Run(client worker.JobClient, job entities.Job, fn JobFunc) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(r.taskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(r.taskType).Dec()

	log := r.logger.WithFields(map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})
	log.Info("Processing job", map[string]interface{}{"retries": job.Retries})

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	var span trace.Span
	if r.recorder != nil {
		ctx, span = r.recorder.StartSpan(ctx, "job."+r.taskType,
			attribute.Int64("zeebe.job_key", job.Key),
			attribute.Int64("zeebe.process_instance_key", job.ProcessInstanceKey),
		)
		defer span.End()
	}

	output, err := fn(ctx, job.Variables)
	if err == nil && ctx.Err() != nil {
		err = errors.NewTimeoutError(r.taskType, ctx.Err())
	}

	reportCtx, cancelReport := context.WithTimeout(context.Background(), reportTimeout)
	defer cancelReport()

	status := "completed"
	if err != nil {
		status = "failed"
		stdErr := errors.Normalize(err)
		if r.nonIdempotent && stdErr.Retryable {
			copied := *stdErr
			copied.Retryable = false
			stdErr = &copied
		}
		metrics.WorkerJobsFailed.WithLabelValues(r.taskType, string(stdErr.Code)).Inc()
		if span != nil {
			span.RecordError(stdErr)
			span.SetStatus(codes.Error, string(stdErr.Code))
		}
		r.errors.HandleJobError(reportCtx, client, job, stdErr)
	} else if cerr := r.complete(reportCtx, client, job, output); cerr != nil {
		status = "failed"
		log.Error("Failed to complete job", map[string]interface{}{"error": cerr.Error()})
		metrics.WorkerJobsFailed.WithLabelValues(r.taskType, string(errors.CodeOf(cerr))).Inc()
	} else {
		metrics.WorkerJobsCompleted.WithLabelValues(r.taskType).Inc()
		log.Info("Job completed", map[string]interface{}{"durationMs": time.Since(start).Milliseconds()})
	}

	elapsed := time.Since(start)
	metrics.WorkerJobDuration.WithLabelValues(r.taskType).Observe(elapsed.Seconds())
	if r.recorder != nil {
		r.recorder.RecordJobProcessed(reportCtx, r.taskType, status)
		r.recorder.RecordJobDuration(reportCtx, r.taskType, elapsed, status)
	}
}

func (r *JobRunner) complete(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	return WithRetry(ctx, r.retry, "complete-job", func(ctx context.Context) error {
		cmd := client.NewCompleteJobCommand().JobKey(job.Key)
		if output == nil {
			_, err := cmd.Send(ctx)
			return err
		}
		withVars, err := cmd.VariablesFromObject(output)
		if err != nil {
			return err
		}
		_, err = withVars.Send(ctx)
		return err
	})
}

// DecodeVariables unmarshals job variables into v.
func DecodeVariables(variables string, v interface{}) error {
	if variables == "" {
		variables = "{}"
	}
	if err := json.Unmarshal([]byte(variables), v); err != nil {
		return errors.NewInputParsingError(err)
	}
	return nil
}

// ==========================
// Worker registry
// ==========================

// Handler is implemented by every worker package.
type Handler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Workers opens and closes the Zeebe job workers of one process.
type Workers struct {
	client zbc.Client
	logger logger.Logger

	mu     sync.Mutex
	opened map[string]worker.JobWorker
}

func NewWorkers(client zbc.Client, log logger.Logger) *Workers {
	return &Workers{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "workers"}),
		opened: map[string]worker.JobWorker{},
	}
}

// Start opens a job worker for taskType unless it is disabled in config.
func (w *Workers) Start(taskType string, wcfg config.WorkerConfig, h Handler) bool {
	if !wcfg.Enabled {
		w.logger.Info("Worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.opened[taskType]; ok {
		w.logger.Warn("Worker already started", map[string]interface{}{"taskType": taskType})
		return false
	}

	jobWorker := w.client.NewJobWorker().
		JobType(taskType).
		Handler(h.Handle).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Name(taskType).
		Open()
	w.opened[taskType] = jobWorker

	w.logger.Info("Worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeoutMs":     wcfg.Timeout,
	})
	return true
}

// TaskTypes lists the running workers.
func (w *Workers) TaskTypes() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.opened))
	for t := range w.opened {
		out = append(out, t)
	}
	return out
}

// Stop closes every worker and waits for in-flight handlers.
func (w *Workers) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for taskType, jw := range w.opened {
		jw.Close()
		jw.AwaitClose()
		w.logger.Info("Worker stopped", map[string]interface{}{"taskType": taskType})
	}
	w.opened = map[string]worker.JobWorker{}
}
