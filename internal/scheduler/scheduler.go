package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc runs one backup. now is the time the trigger fired.
type JobFunc func(ctx context.Context, now time.Time)

var parser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks a schedule expression without scheduling anything
func Validate(schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return nil
}

// Scheduler fires a single job on a cron schedule. A tick that arrives while
// the previous run is still going is skipped.
type Scheduler struct {
	cron     *cron.Cron
	entry    cron.EntryID
	schedule string
}

// New creates a scheduler for the given expression. Standard five-field
// expressions and descriptors such as @daily are accepted.
func New(ctx context.Context, schedule string, job JobFunc) (*Scheduler, error) {
	logger := cronLogger{}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	entry, err := c.AddFunc(schedule, func() {
		job(ctx, time.Now())
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	return &Scheduler{
		cron:     c,
		entry:    entry,
		schedule: schedule,
	}, nil
}

// Start begins the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "schedule", s.schedule, "next_run", s.Next())
}

// Stop stops the scheduler. The returned context is done once a running job
// has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Next returns the next activation time, zero if the scheduler is not running
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// cronLogger routes cron's internal logging through slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
