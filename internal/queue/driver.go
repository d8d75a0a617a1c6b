package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/JaimeStill/custodian/pkg/lifecycle"
)

// Driver invokes the scheduler on a fixed period from a single
// goroutine, so dispatch cycles never overlap. A cycle that outlasts
// the period simply delays the next tick.
type Driver struct {
	scheduler *Scheduler
	interval  time.Duration
	logger    *slog.Logger
}

// NewDriver creates a Driver running the scheduler every interval.
func NewDriver(scheduler *Scheduler, interval time.Duration, logger *slog.Logger) *Driver {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Driver{
		scheduler: scheduler,
		interval:  interval,
		logger:    logger.With("system", "queue-driver"),
	}
}

// Start launches the dispatch loop and registers shutdown handling
// with the lifecycle coordinator.
func (d *Driver) Start(lc *lifecycle.Coordinator) error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go d.run(ctx, done)

	lc.OnStartup(func() {
		d.logger.Info("queue driver started", "interval", d.interval)
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		d.logger.Info("stopping queue driver")
		cancel()
		<-done
		d.logger.Info("queue driver stopped")
	})

	return nil
}

func (d *Driver) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := d.scheduler.RunCycle(ctx)
			if err != nil {
				d.logger.Error("dispatch cycle failed", "error", err)
				continue
			}
			if stats.Selected > 0 {
				d.logger.Info("dispatch cycle complete",
					"selected", stats.Selected,
					"done", stats.Done,
					"retried", stats.Retried,
					"failed", stats.Failed,
					"skipped", stats.Skipped,
				)
			}
		}
	}
}
