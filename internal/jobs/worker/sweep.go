package worker

import (
	"context"
	"time"

	"github.com/yungbote/oni-coach-backend/internal/config"
)

// sweep keeps escalating schedules that were already posted and are still
// waiting on an answer. Errors are logged and never change schedule state.
func (w *Worker) sweep(ctx context.Context) {
	ctx, span := w.tracer.Start(ctx, "worker.sweep")
	defer span.End()

	now := w.now()
	hours := w.cfg.Int(ctx, config.KeyEscalationLookbackHours, config.DefaultEscalationLookbackHours)
	if hours <= 0 {
		hours = config.DefaultEscalationLookbackHours
	}
	monitored, err := w.store.ListMonitored(ctx, now.Add(-time.Duration(hours)*time.Hour), now)
	if err != nil {
		w.log.Warn("ListMonitored failed", "error", err)
		span.RecordError(err)
		return
	}
	for _, s := range monitored {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.log.Error("escalation sweep panic", "schedule_id", s.ID, "panic", r)
				}
			}()
			if err := w.runDetectors(ctx, s, true); err != nil {
				w.log.Warn("escalation sweep failed", "schedule_id", s.ID, "error", err)
			}
		}()
	}
}
