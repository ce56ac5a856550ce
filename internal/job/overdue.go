// Package job holds background work scheduled alongside the HTTP server.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/project-portal-go/internal/infra/observability"
	"github.com/boddenberg/project-portal-go/internal/port"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("job")

const runTimeout = 30 * time.Second

// OverdueJob flips pending payments whose due date has passed to overdue.
type OverdueJob struct {
	payments port.PaymentStore
	metrics  *observability.Metrics
	logger   *zap.Logger
	schedule string
	cron     *cron.Cron
	now      func() time.Time
}

// NewOverdueJob creates the sweeper. An empty schedule disables it.
func NewOverdueJob(payments port.PaymentStore, schedule string, metrics *observability.Metrics, logger *zap.Logger) *OverdueJob {
	return &OverdueJob{
		payments: payments,
		metrics:  metrics,
		logger:   logger,
		schedule: schedule,
		now:      time.Now,
	}
}

// Enabled reports whether a schedule is configured.
func (j *OverdueJob) Enabled() bool {
	return j.schedule != ""
}

// Start registers the job and starts the scheduler. It does nothing when disabled.
func (j *OverdueJob) Start() error {
	if !j.Enabled() {
		j.logger.Info("overdue sweeper disabled")
		return nil
	}
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{j.logger})))
	if _, err := c.AddFunc(j.schedule, j.tick); err != nil {
		return fmt.Errorf("schedule overdue sweeper %q: %w", j.schedule, err)
	}
	j.cron = c
	c.Start()
	j.logger.Info("overdue sweeper started", zap.String("schedule", j.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish or ctx to end.
func (j *OverdueJob) Stop(ctx context.Context) {
	if j.cron == nil {
		return
	}
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
		j.logger.Warn("overdue sweeper did not stop in time")
	}
}

func (j *OverdueJob) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, err := j.Run(ctx); err != nil {
		j.logger.Error("overdue sweep failed", zap.Error(err))
	}
}

// Run performs one sweep and returns how many payments changed.
func (j *OverdueJob) Run(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "OverdueJob.Run")
	defer span.End()

	start := time.Now()
	n, err := j.payments.MarkOverdue(ctx, j.now().UTC())
	j.metrics.RecordOperation("mark_overdue", time.Since(start))
	if err != nil {
		return 0, err
	}
	j.metrics.AddOverdue(n)
	if n > 0 {
		j.logger.Info("payments marked overdue", zap.Int("count", n))
	}
	return n, nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
