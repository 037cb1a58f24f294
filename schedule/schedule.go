// Package schedule re-runs the seed on cron schedules so a long-lived demo
// database keeps maturing its documents.
//
// A spec holds one or more cron expressions separated by semicolons, each
// either five fields (minute, hour, day, month, weekday) or a descriptor
// such as @daily:
//
//	trigger, err := schedule.New("0 3 * * *; 30 12 * * 1-5", runner, logger)
//	if err != nil {
//		return err
//	}
//	trigger.Start(ctx) // returns immediately, fires until ctx is cancelled
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSpec is returned when a schedule cannot be parsed.
var ErrInvalidSpec = errors.New("invalid schedule")

const specSeparator = ";"

// Source labels runs started by a trigger.
const Source = "cron"

// Runnable starts a run. source tells the runnable who asked.
type Runnable interface {
	Run(source string) error
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Parse splits spec on semicolons and parses every expression.
func Parse(spec string) ([]cron.Schedule, error) {
	var schedules []cron.Schedule
	for _, expr := range strings.Split(spec, specSeparator) {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		s, err := parser.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidSpec, expr, err)
		}
		schedules = append(schedules, s)
	}
	if len(schedules) == 0 {
		return nil, fmt.Errorf("%w: no cron expression in %q", ErrInvalidSpec, spec)
	}
	return schedules, nil
}

// Trigger runs a Runnable whenever one of its schedules fires.
type Trigger struct {
	spec      string
	schedules []cron.Schedule
	runnable  Runnable
	logger    *slog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// New parses spec and returns a trigger for runnable.
func New(spec string, runnable Runnable, logger *slog.Logger) (*Trigger, error) {
	schedules, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	return &Trigger{
		spec:      spec,
		schedules: schedules,
		runnable:  runnable,
		logger:    logger.With("component", "schedule"),
		now:       time.Now,
		after:     time.After,
	}, nil
}

// Spec returns the schedule the trigger was built from.
func (t *Trigger) Spec() string {
	return t.spec
}

// NextRun returns the earliest time any schedule fires after now.
func (t *Trigger) NextRun() time.Time {
	return t.next(t.now())
}

func (t *Trigger) next(from time.Time) time.Time {
	var earliest time.Time
	for _, s := range t.schedules {
		if n := s.Next(from); earliest.IsZero() || n.Before(earliest) {
			earliest = n
		}
	}
	return earliest
}

// Start fires the trigger in a goroutine until ctx is cancelled.
func (t *Trigger) Start(ctx context.Context) {
	go t.loop(ctx)
}

func (t *Trigger) loop(ctx context.Context) {
	for {
		next := t.NextRun()
		wait := next.Sub(t.now())
		t.logger.Debug("waiting for next scheduled run", "next_run", next, "wait", wait)

		select {
		case <-ctx.Done():
			t.logger.Info("schedule stopped")
			return
		case <-t.after(wait):
			t.fire()
		}
	}
}

func (t *Trigger) fire() {
	t.logger.Info("starting scheduled run")
	if err := t.runnable.Run(Source); err != nil {
		t.logger.Warn("scheduled run not started", "error", err)
	}
}
