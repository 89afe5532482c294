package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// jobTimeout bounds a single job run.
const jobTimeout = 10 * time.Minute

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	ctx  context.Context
	cron *cron.Cron
}

// NewScheduler creates a Scheduler. Job contexts and loggers derive from ctx.
func NewScheduler(ctx context.Context, loc *time.Location) *Scheduler {
	return &Scheduler{
		ctx:  ctx,
		cron: cron.New(cron.WithLocation(loc), cron.WithParser(cronParser)),
	}
}

// Add registers fn under name. An empty spec skips the job.
func (s *Scheduler) Add(name, spec string, fn func(ctx context.Context) error) error {
	if spec == "" {
		zctx.From(s.ctx).Info("Job disabled", zap.String("job", name))
		return nil
	}
	if _, err := s.cron.AddFunc(spec, s.wrap(name, fn)); err != nil {
		return errors.Wrapf(err, "schedule %s", name)
	}
	return nil
}

func (s *Scheduler) wrap(name string, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
		defer cancel()
		ctx = zctx.With(ctx, zap.String("job", name))
		lg := zctx.From(ctx)

		defer func() {
			if r := recover(); r != nil {
				lg.Error("Job panic", zap.Any("panic", r), zap.Stack("stack"))
			}
		}()

		start := time.Now()
		if err := fn(ctx); err != nil {
			lg.Error("Job failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
			return
		}
		lg.Info("Job done", zap.Duration("duration", time.Since(start)))
	}
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
