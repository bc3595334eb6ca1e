package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/oni-coach-backend/internal/domain"
	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"gorm.io/gorm"
)

func SeedSchedule(tb testing.TB, ctx context.Context, tx *gorm.DB, owner string, kind types.EventType, state types.ScheduleState, runAt time.Time) *types.Schedule {
	tb.Helper()
	s := coach.NewSchedule(owner, kind, runAt)
	s.State = state
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed schedule: %v", err)
	}
	return s
}

func SeedCommitment(tb testing.TB, ctx context.Context, tx *gorm.DB, owner string, clock string, task string, updatedAt time.Time) *types.Commitment {
	tb.Helper()
	c := &types.Commitment{
		ID:          uuid.New(),
		OwnerUserID: owner,
		Time:        clock,
		Task:        task,
		Active:      true,
		CreatedAt:   updatedAt.UTC(),
		UpdatedAt:   updatedAt.UTC(),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed commitment: %v", err)
	}
	return c
}

func SeedPunishment(tb testing.TB, ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID, mode types.PunishmentMode, count int, at time.Time) *types.Punishment {
	tb.Helper()
	p := &types.Punishment{
		ID:         uuid.New(),
		ScheduleID: scheduleID,
		Mode:       mode,
		Count:      count,
		CreatedAt:  at.UTC(),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed punishment: %v", err)
	}
	return p
}

func SeedActionLog(tb testing.TB, ctx context.Context, tx *gorm.DB, scheduleID uuid.UUID, result types.ActionResult, at time.Time) *types.ActionLog {
	tb.Helper()
	a := &types.ActionLog{
		ID:         uuid.New(),
		ScheduleID: scheduleID,
		Result:     result,
		CreatedAt:  at.UTC(),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed action log: %v", err)
	}
	return a
}
