// Package seed assembles the demoseed run: module activation, master data
// provisioning, document replay and finalization, one activity per step.
//
// Which steps run is decided by the gate table in steps.go. A step gated on
// Newly only runs the first time one of its modules is switched on, so a
// re-run against a seeded database only matures existing documents.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nomis52/demoseed/activity"
	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/config"
	"github.com/nomis52/demoseed/logging"
	"github.com/nomis52/demoseed/metrics"
	"github.com/nomis52/demoseed/modules"
	"github.com/nomis52/demoseed/provision"
	"github.com/nomis52/demoseed/replay"
	"github.com/nomis52/demoseed/workflow"
	"github.com/nomis52/demoseed/workflows"
)

// Session is the context shared by the steps of one run.
type Session struct {
	// Today is the reference date documents are dated around.
	Today bos.Date
	// Prefs are the platform user preferences, reloaded once the company
	// exists.
	Prefs bos.Record
}

// Reload refreshes the user preferences from the platform.
func (s *Session) Reload(ctx context.Context, svc bos.Service) error {
	prefs, err := svc.Preferences(ctx)
	if err != nil {
		return fmt.Errorf("reloading preferences: %w", err)
	}
	s.Prefs = prefs
	return nil
}

// WorkflowOption configures workflow creation.
type WorkflowOption func(*workflowOptions)

type workflowOptions struct {
	loggerFactory    workflow.Factory[*slog.Logger]
	statusCollection *activity.StatusHandler
	registry         metrics.Registry
	logHook          logging.LoggerHook
	now              func() time.Time
}

// WithLoggerFactory sets a logger factory for creating activity-specific loggers.
func WithLoggerFactory(factory workflow.Factory[*slog.Logger]) WorkflowOption {
	return func(opts *workflowOptions) {
		opts.loggerFactory = factory
	}
}

// WithStatusCollection sets a status collection for tracking activity status.
func WithStatusCollection(collection *activity.StatusHandler) WorkflowOption {
	return func(opts *workflowOptions) {
		opts.statusCollection = collection
	}
}

// WithMetricsRegistry records provisioning and replay counters.
func WithMetricsRegistry(registry metrics.Registry) WorkflowOption {
	return func(opts *workflowOptions) {
		opts.registry = registry
	}
}

// WithLogHook wraps every activity logger, e.g. to capture a run's logs.
func WithLogHook(hook logging.LoggerHook) WorkflowOption {
	return func(opts *workflowOptions) {
		opts.logHook = hook
	}
}

// WithClock sets the clock the reference date is read from when the config
// does not fix one.
func WithClock(now func() time.Time) WorkflowOption {
	return func(opts *workflowOptions) {
		opts.now = now
	}
}

// NewWorkflow creates the seeding workflow against svc.
func NewWorkflow(cfg *config.Config, svc bos.Service, logger *slog.Logger, opts ...WorkflowOption) (workflow.Workflow, error) {
	options := &workflowOptions{now: time.Now}
	for _, opt := range opts {
		opt(options)
	}

	orchestratorOpts := []workflow.OrchestratorOption{
		workflow.WithConfig(cfg),
		workflow.WithLogger(logger),
	}
	if options.logHook != nil {
		orchestratorOpts = append(orchestratorOpts, workflow.WithLogHook(options.logHook))
	}
	o := workflow.NewOrchestrator(orchestratorOpts...)

	d, err := buildDeps(cfg, svc, logger, options)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependencies: %w", err)
	}
	workflow.Provide(o, workflow.Shared(d.provisioner))
	workflow.Provide(o, workflow.Shared(d.driver))
	workflow.Provide(o, workflow.Shared(d.runner))
	workflow.Provide(o, workflow.Shared(d.session))

	workflows.Params{
		Logger:           logger,
		StatusCollection: options.statusCollection,
		LoggerFactory:    options.loggerFactory,
		Registry:         options.registry,
	}.InjectInto(o)

	if err := NewSteps().Register(o); err != nil {
		return nil, fmt.Errorf("failed to add activities: %w", err)
	}
	return o, nil
}

type deps struct {
	provisioner *provision.Provisioner
	driver      *modules.Driver
	runner      *replay.Runner
	session     *Session
}

func buildDeps(cfg *config.Config, svc bos.Service, logger *slog.Logger, options *workflowOptions) (*deps, error) {
	provisionOpts := []provision.Option{provision.WithLogger(logger)}
	replayOpts := []replay.Option{replay.WithLogger(logger)}
	if options.registry != nil {
		pm, err := provision.NewMetrics(options.registry)
		if err != nil {
			return nil, fmt.Errorf("creating provisioning metrics: %w", err)
		}
		rm, err := replay.NewMetrics(options.registry)
		if err != nil {
			return nil, fmt.Errorf("creating replay metrics: %w", err)
		}
		provisionOpts = append(provisionOpts, provision.WithMetrics(pm))
		replayOpts = append(replayOpts, replay.WithMetrics(rm))
	}

	today := bos.DateOf(cfg.ReferenceDate(options.now()))
	logger.Info("seeding", "database", cfg.Target.Database, "today", today.String(), "seed", cfg.Demo.Seed)

	return &deps{
		provisioner: provision.New(svc, provisionOpts...),
		driver:      modules.NewDriver(svc, modules.WithLogger(logger)),
		runner:      replay.NewRunner(svc, replay.NewRand(cfg.Demo.Seed), replayOpts...),
		session:     &Session{Today: today},
	}, nil
}
