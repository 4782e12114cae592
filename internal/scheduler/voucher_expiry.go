// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"outingrewards/internal/domain"
)

// sweepTimeout bounds a single expiry sweep.
const sweepTimeout = 5 * time.Minute

// VoucherExpiry periodically moves ACTIVE vouchers past their expiry to EXPIRED.
type VoucherExpiry struct {
	vouchers  domain.VoucherService
	logger    *slog.Logger
	now       func() time.Time
	scheduler gocron.Scheduler
}

// NewVoucherExpiry schedules the sweep on a standard five-field cron expression
// (e.g. "0 3 * * *"). Overlapping runs are skipped, not queued.
func NewVoucherExpiry(vouchers domain.VoucherService, cronExpr string, logger *slog.Logger) (*VoucherExpiry, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	j := &VoucherExpiry{
		vouchers:  vouchers,
		logger:    logger,
		now:       time.Now,
		scheduler: sched,
	}
	_, err = sched.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(j.tick),
		gocron.WithName("voucher-expiry"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule voucher expiry %q: %w", cronExpr, err)
	}
	return j, nil
}

// Start begins running the job on its schedule. It does not block.
func (j *VoucherExpiry) Start() {
	j.scheduler.Start()
	j.logger.Info("voucher expiry scheduler started")
}

// Shutdown stops the schedule and waits for a running sweep to finish.
func (j *VoucherExpiry) Shutdown() error {
	if err := j.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}

// Run performs one sweep immediately.
func (j *VoucherExpiry) Run(ctx context.Context) (int64, error) {
	return j.vouchers.ExpireSweep(ctx, j.now())
}

func (j *VoucherExpiry) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	start := time.Now()
	n, err := j.Run(ctx)
	if err != nil {
		j.logger.Error("voucher expiry sweep failed", "err", err)
		return
	}
	j.logger.Info("voucher expiry sweep finished", "expired", n, "duration_ms", time.Since(start).Milliseconds())
}
