package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompanyProvider lists the companies to reconcile
type CompanyProvider interface {
	CompanyIDs(ctx context.Context) ([]uuid.UUID, error)
}

// IntervalTrigger sweeps every company on a fixed interval
type IntervalTrigger struct {
	interval  time.Duration
	scheduler *Scheduler
	companies CompanyProvider
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIntervalTrigger creates a new trigger
func NewIntervalTrigger(interval time.Duration, scheduler *Scheduler, companies CompanyProvider, logger *zap.Logger) *IntervalTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntervalTrigger{
		interval:  interval,
		scheduler: scheduler,
		companies: companies,
		logger:    logger,
	}
}

// Start starts the trigger loop
func (c *IntervalTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Reconciliation trigger started", zap.Duration("interval", c.interval))
	return nil
}

// Stop stops the trigger loop
func (c *IntervalTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Reconciliation trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *IntervalTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Sweep(ctx); err != nil {
				c.logger.Error("Reconciliation sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep queues a reconciliation for every company and returns how many were
// queued. Companies whose previous job is still in flight are skipped.
func (c *IntervalTrigger) Sweep(ctx context.Context) (int, error) {
	ids, err := c.companies.CompanyIDs(ctx)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, id := range ids {
		_, err := c.scheduler.ScheduleReconciliation(id)
		switch {
		case err == nil:
			queued++
		case errors.Is(err, ErrJobInFlight):
			c.logger.Debug("Skipping company with reconciliation in flight",
				zap.String("company_id", id.String()))
		default:
			return queued, err
		}
	}

	c.logger.Info("Reconciliation sweep queued",
		zap.Int("companies", len(ids)),
		zap.Int("queued", queued),
	)
	return queued, nil
}
