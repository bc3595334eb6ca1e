package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/escalation"
)

// Store is the schedule store the worker drives. Every mutation commits on its
// own unless it runs inside InTx.
type Store interface {
	escalation.Store

	AnyActive(ctx context.Context) (bool, error)
	// LatestActiveCommitmentOwner returns "" when no owner has an active commitment.
	LatestActiveCommitmentOwner(ctx context.Context) (string, error)
	HasPlanOn(ctx context.Context, ownerUserID string, runDate string) (bool, error)
	CreateSchedule(ctx context.Context, s *coach.Schedule) error

	ListDue(ctx context.Context, now time.Time) ([]*coach.Schedule, error)
	ListMonitored(ctx context.Context, since, now time.Time) ([]*coach.Schedule, error)

	// ClaimSchedule moves PENDING to PROCESSING; false means the claim was lost.
	ClaimSchedule(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	TransitionSchedule(ctx context.Context, id uuid.UUID, from, to coach.ScheduleState, now time.Time) (bool, error)
	RecordScheduleFailure(ctx context.Context, id uuid.UUID, f Failure) error
	SetThreadTS(ctx context.Context, id uuid.UUID, ts string) error

	InTx(ctx context.Context, fn func(tx Store) error) error
}

// Failure is the bookkeeping written after a failed processing attempt.
// A zero RunAt leaves the fire time unchanged.
type Failure struct {
	RetryCount int
	State      coach.ScheduleState
	RunAt      time.Time
	Now        time.Time
}

// Notifier posts the prompt for a schedule and returns the message reference.
type Notifier interface {
	Notify(ctx context.Context, s *coach.Schedule) (string, error)
}

type Detector interface {
	DetectIgnore(ctx context.Context, s *coach.Schedule, now time.Time) (escalation.Result, error)
	DetectNo(ctx context.Context, s *coach.Schedule, now time.Time) (escalation.Result, error)
}

type Config interface {
	Int(ctx context.Context, key string, def int) int
	Bool(ctx context.Context, key string, def bool) bool
}
