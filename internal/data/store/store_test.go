package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/oni-coach-backend/internal/data/repos/testutil"
	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/jobs/worker"
)

func TestStoreAutoIgnoreIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	st := New(db, testutil.Logger(t))

	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	s := testutil.SeedSchedule(t, ctx, db, "U1", coach.EventRemind, coach.StateDone, now.Add(-3*time.Hour))

	for i := 0; i < 3; i++ {
		if err := st.AutoIgnore(ctx, s.ID, now); err != nil {
			t.Fatalf("AutoIgnore #%d: %v", i, err)
		}
	}

	var got coach.Schedule
	if err := db.First(&got, "id = ?", s.ID).Error; err != nil {
		t.Fatalf("load schedule: %v", err)
	}
	if got.State != coach.StateCanceled {
		t.Fatalf("state: want=%q got=%q", coach.StateCanceled, got.State)
	}
	var n int64
	if err := db.Model(&coach.ActionLog{}).Where("schedule_id = ? AND result = ?", s.ID, coach.ResultAutoIgnore).Count(&n).Error; err != nil {
		t.Fatalf("count logs: %v", err)
	}
	if n != 1 {
		t.Fatalf("AUTO_IGNORE logs: want=1 got=%d", n)
	}
}

func TestStoreInTxRollsBack(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	st := New(db, testutil.Logger(t))

	now := time.Date(2026, 5, 4, 7, 0, 0, 0, time.UTC)
	boom := errors.New("boom")
	err := st.InTx(ctx, func(tx worker.Store) error {
		if err := tx.CreateSchedule(ctx, coach.NewSchedule("U1", coach.EventPlan, now)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx: want boom got=%v", err)
	}
	active, err := st.AnyActive(ctx)
	if err != nil || active {
		t.Fatalf("AnyActive after rollback: want=false got=%v err=%v", active, err)
	}
}

func TestStoreFailureAndClaim(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	st := New(db, testutil.Logger(t))

	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	s := testutil.SeedSchedule(t, ctx, db, "U1", coach.EventRemind, coach.StatePending, now.Add(-time.Minute))

	claimed, err := st.ClaimSchedule(ctx, s.ID, now)
	if err != nil || !claimed {
		t.Fatalf("ClaimSchedule: want=true got=%v err=%v", claimed, err)
	}
	if err := st.SetThreadTS(ctx, s.ID, "1700000000.000100"); err != nil {
		t.Fatalf("SetThreadTS: %v", err)
	}

	retryAt := now.Add(5 * time.Minute)
	if err := st.RecordScheduleFailure(ctx, s.ID, worker.Failure{
		RetryCount: 1,
		State:      coach.StatePending,
		RunAt:      retryAt,
		Now:        now,
	}); err != nil {
		t.Fatalf("RecordScheduleFailure: %v", err)
	}

	due, err := st.ListDue(ctx, retryAt)
	if err != nil || len(due) != 1 {
		t.Fatalf("ListDue: want=1 got=%d err=%v", len(due), err)
	}
	got := due[0]
	if got.RetryCount != 1 || got.State != coach.StatePending || !got.RunAt.Equal(retryAt) {
		t.Fatalf("failure bookkeeping: got retry=%d state=%s run_at=%s", got.RetryCount, got.State, got.RunAt)
	}
	if got.ThreadTS == nil || *got.ThreadTS != "1700000000.000100" {
		t.Fatalf("thread ts: got=%v", got.ThreadTS)
	}
	if due, err := st.ListDue(ctx, now); err != nil || len(due) != 0 {
		t.Fatalf("ListDue before retry: want=0 got=%d err=%v", len(due), err)
	}
}

func TestMemoryInTxRestoresOnError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Date(2026, 5, 4, 7, 0, 0, 0, time.UTC)

	_ = m.InTx(ctx, func(tx worker.Store) error {
		if err := tx.CreateSchedule(ctx, coach.NewSchedule("U1", coach.EventPlan, now)); err != nil {
			return err
		}
		return errors.New("rollback")
	})
	if n := len(m.Schedules()); n != 0 {
		t.Fatalf("schedules after rollback: want=0 got=%d", n)
	}

	if err := m.CreateSchedule(ctx, coach.NewSchedule("U1", coach.EventPlan, now)); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if err := m.CreateSchedule(ctx, coach.NewSchedule("U1", coach.EventPlan, now.Add(time.Hour))); !errors.Is(err, coach.ErrConflict) {
		t.Fatalf("second open plan: want ErrConflict got=%v", err)
	}
}
