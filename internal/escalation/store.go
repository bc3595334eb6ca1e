package escalation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
)

// Store is the persistence surface the detectors need.
type Store interface {
	PunishmentExists(ctx context.Context, scheduleID uuid.UUID, mode coach.PunishmentMode, count int) (bool, error)
	HasActionLog(ctx context.Context, scheduleID uuid.UUID, result coach.ActionResult) (bool, error)
	// CountShockPunishments counts the owner's shock-graduated punishments created in [from, to).
	CountShockPunishments(ctx context.Context, ownerUserID string, from, to time.Time) (int, error)
	// RecordPunishment inserts p unless its (schedule, mode, count) key exists; created=false on conflict.
	RecordPunishment(ctx context.Context, p *coach.Punishment) (created bool, err error)
	// AutoIgnore cancels the schedule and appends a single AUTO_IGNORE log atomically.
	AutoIgnore(ctx context.Context, scheduleID uuid.UUID, now time.Time) error
}

// StimulusSender delivers a physical stimulus. Any error is a delivery failure.
type StimulusSender interface {
	Send(ctx context.Context, s coach.Stimulus) error
}

// Config is the typed getter the detectors read thresholds through.
type Config interface {
	Int(ctx context.Context, key string, def int) int
}
