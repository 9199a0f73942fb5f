// README: Periodic sweep of expired assignment locks.
package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reaper drives Engine.Sweep on a fixed interval. It is the safety net for
// offers whose driver never responded: the interval is deliberately coarser
// than the lock TTL, trading detection latency for reduced store load.
type Reaper struct {
	engine   *Engine
	interval time.Duration
	log      *zap.Logger
}

func NewReaper(engine *Engine, interval time.Duration, log *zap.Logger) *Reaper {
	return &Reaper{engine: engine, interval: interval, log: log}
}

func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := r.engine.Sweep(ctx)
			if err != nil {
				r.log.Error("lock sweep failed", zap.Error(err))
				continue
			}
			if report.Processed > 0 {
				r.log.Info("lock sweep completed",
					zap.Int("processed", report.Processed),
					zap.Int("reassigned", report.Reassigned),
					zap.Int("failed", report.Failed))
			}
		}
	}
}
