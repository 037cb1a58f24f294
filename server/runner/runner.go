// Package runner executes seeding runs for the schedule server.
//
// The runner:
//   - starts a run in the background, refusing a second one while it is busy
//   - connects to the platform afresh for every run with the current config
//   - captures each step's status line and log records
//   - records finished runs in a StateStore and in the run metrics
//
// # Example
//
//	r, err := runner.New(logger, provider, connect)
//	if err != nil {
//		return err
//	}
//	if err := r.Run("api"); errors.Is(err, runner.ErrRunInProgress) {
//		// someone else is seeding
//	}
//	status := r.Status() // live step statuses and logs while running
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nomis52/demoseed/activity"
	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/config"
	"github.com/nomis52/demoseed/logging"
	"github.com/nomis52/demoseed/metrics"
	"github.com/nomis52/demoseed/workflow"
	"github.com/nomis52/demoseed/workflows/seed"
)

// ErrRunInProgress is returned when a run is requested while one is running.
var ErrRunInProgress = errors.New("seeding run already in progress")

// ConfigProvider provides the configuration a run starts with.
type ConfigProvider interface {
	Config() *config.Config
}

// Connector opens the platform service a run seeds.
type Connector func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (bos.Service, error)

// Runner manages seeding runs.
type Runner struct {
	logger   *slog.Logger
	provider ConfigProvider
	connect  Connector
	store    StateStore
	registry metrics.Registry
	metrics  *metrics.RunMetrics
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	status   RunStatus
	workflow workflow.Workflow
	statuses *activity.StatusHandler
	logs     *logging.LogCollector
}

// Option configures a Runner.
type Option func(*Runner)

// WithStateStore keeps history in store instead of in memory.
func WithStateStore(store StateStore) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithMetricsRegistry records run summaries and the seed counters in reg.
func WithMetricsRegistry(reg metrics.Registry) Option {
	return func(r *Runner) {
		r.registry = reg
	}
}

// New creates an idle runner.
func New(logger *slog.Logger, provider ConfigProvider, connect Connector, opts ...Option) (*Runner, error) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		logger:   logging.Component(logger, "runner"),
		provider: provider,
		connect:  connect,
		store:    NewMemoryStore(0),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		status:   RunStatus{State: RunStateIdle},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry != nil {
		m, err := metrics.NewRunMetrics(r.registry)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("creating run metrics: %w", err)
		}
		r.metrics = m
	}
	return r, nil
}

// Run starts a seeding run in the background. source records who asked
// for it.
func (r *Runner) Run(source string) error {
	id, ok := r.tryStart(source)
	if !ok {
		return ErrRunInProgress
	}
	r.logger.Info("starting seeding run", logging.RunIDKey, id, "source", source)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := r.execute(r.ctx, id)
		r.finish(err)
	}()
	return nil
}

// Wait blocks until the current run, if any, has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Stop cancels a run in progress and waits for it to finish.
func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
}

// Status returns the current run with live step statuses and logs, or the
// last finished run when idle.
func (r *Runner) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := r.status
	if status.State == RunStateRunning {
		status.Activities = r.executions()
	}
	return status
}

// IsRunning reports whether a run is in progress.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status.State == RunStateRunning
}

// History returns finished runs, most recent first, without logs.
func (r *Runner) History() []RunStatus {
	return r.store.History()
}

// Get returns a finished run with its logs.
func (r *Runner) Get(id string) (RunStatus, error) {
	return r.store.Get(id)
}

func (r *Runner) tryStart(source string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status.State == RunStateRunning {
		return "", false
	}
	now := r.now()
	r.status = RunStatus{
		ID:        logging.NewRunID(),
		State:     RunStateRunning,
		Source:    source,
		StartedAt: &now,
	}
	r.workflow = nil
	r.statuses = activity.NewStatusHandler()
	r.logs = logging.NewLogCollector()
	return r.status.ID, true
}

func (r *Runner) execute(ctx context.Context, id string) error {
	cfg := r.provider.Config()
	if cfg == nil {
		return errors.New("no configuration available")
	}
	logger := r.logger.With(logging.RunIDKey, id)

	svc, err := r.connect(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.Target.URL, err)
	}

	r.mu.Lock()
	statuses, logs := r.statuses, r.logs
	r.mu.Unlock()

	capture := logging.NewCapturingLoggerHook(logs)
	opts := []seed.WorkflowOption{
		seed.WithStatusCollection(statuses),
		seed.WithLoggerFactory(func(id workflow.ActivityID) *slog.Logger {
			return capture.LoggerForActivity(logger, id.String())
		}),
		seed.WithClock(r.now),
	}
	if r.registry != nil {
		opts = append(opts, seed.WithMetricsRegistry(r.registry))
	}
	wf, err := seed.NewWorkflow(cfg, svc, logger, opts...)
	if err != nil {
		return fmt.Errorf("creating seed workflow: %w", err)
	}

	r.mu.Lock()
	r.workflow = wf
	r.mu.Unlock()

	return wf.Execute(ctx)
}

func (r *Runner) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ended := r.now()
	r.status.State = RunStateIdle
	r.status.EndedAt = &ended
	r.status.Activities = r.executions()
	took := r.status.Duration()

	if err != nil {
		r.status.Error = err.Error()
		r.logger.Error("seeding run failed", logging.RunIDKey, r.status.ID, "error", err, "duration", took)
	} else {
		r.logger.Info("seeding run completed", logging.RunIDKey, r.status.ID, "duration", took)
	}

	if r.metrics != nil {
		var results map[workflow.ActivityID]*workflow.Result
		if r.workflow != nil {
			results = r.workflow.GetAllResults()
		}
		r.metrics.Observe(results, ended, took, err)
	}
	if err := r.store.Save(r.status); err != nil {
		r.logger.Error("failed to save run", logging.RunIDKey, r.status.ID, "error", err)
	}
}

// executions lists the steps in run order. Callers hold mu.
func (r *Runner) executions() []ActivityExecution {
	if r.workflow == nil {
		return nil
	}
	results := r.workflow.GetAllResults()
	var executions []ActivityExecution
	for _, id := range seed.Order() {
		res, ok := results[id]
		if !ok {
			continue
		}
		exec := ActivityExecution{
			Module: id.Module,
			Type:   id.Type,
			State:  res.State.String(),
			Status: r.statuses.Get(id),
		}
		if res.Error != nil {
			exec.Error = res.Error.Error()
		}
		exec.Logs = r.logs.Entries(id.String())
		exec.DroppedLogs = r.logs.Dropped(id.String())
		executions = append(executions, exec)
	}
	return executions
}
