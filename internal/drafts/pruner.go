package drafts

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Pruner deletes stale drafts on a cron schedule.
type Pruner struct {
	store  *Store
	maxAge time.Duration
	cron   *cron.Cron
	log    *zap.Logger
}

// NewPruner schedules pruning of drafts older than maxAge. schedule is a
// standard cron expression or descriptor such as "@daily".
func NewPruner(store *Store, schedule string, maxAge time.Duration, log *zap.Logger) (*Pruner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pruner{store: store, maxAge: maxAge, cron: cron.New(), log: log.Named("drafts")}
	if _, err := p.cron.AddFunc(schedule, func() { p.Run(context.Background()) }); err != nil {
		return nil, fmt.Errorf("scheduling draft pruning %q: %w", schedule, err)
	}
	return p, nil
}

// Start begins the schedule in the background.
func (p *Pruner) Start() { p.cron.Start() }

// Stop halts the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() { <-p.cron.Stop().Done() }

// Run prunes once and returns the number of removed drafts.
func (p *Pruner) Run(ctx context.Context) int64 {
	n, err := p.store.Prune(ctx, time.Now().Add(-p.maxAge))
	if err != nil {
		p.log.Warn("Draft pruning failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		p.log.Info("Pruned stale drafts", zap.Int64("count", n), zap.Duration("max_age", p.maxAge))
	}
	return n
}
