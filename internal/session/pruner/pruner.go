package pruner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"rental-backoffice/backend/internal/metrics"
)

// DefaultSchedule runs the prune once an hour.
const DefaultSchedule = "@every 1h"

// ExpiredDeleter is the session store capability the pruner needs.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Pruner periodically removes sessions whose refresh token has expired.
type Pruner struct {
	store   ExpiredDeleter
	logger  *zap.Logger
	now     func() time.Time
	timeout time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

// New returns a Pruner over store. A nil logger is replaced with a no-op logger.
func New(store ExpiredDeleter, logger *zap.Logger) *Pruner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pruner{store: store, logger: logger, now: time.Now, timeout: time.Minute}
}

// Start schedules the prune job. schedule accepts standard cron syntax and descriptors
// such as "@every 30m". Calling Start on a running Pruner is a no-op.
func (p *Pruner) Start(schedule string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cron != nil {
		return nil
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { _, _ = p.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	c.Start()
	p.cron = c
	p.logger.Info("session pruner started", zap.String("schedule", schedule))
	return nil
}

// Stop halts scheduling and waits for a running prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// RunOnce deletes every session that expired before now.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	n, err := p.store.DeleteExpired(ctx, p.now().UTC())
	if err != nil {
		p.logger.Warn("session prune failed", zap.Error(err))
		return 0, err
	}
	metrics.RecordPruned(n)
	if n > 0 {
		p.logger.Info("pruned expired sessions", zap.Int64("removed", n))
	}
	return n, nil
}
