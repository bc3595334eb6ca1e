package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	coachrepo "github.com/yungbote/oni-coach-backend/internal/data/repos/coach"
	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/jobs/worker"
	"github.com/yungbote/oni-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

// Store adapts the gorm repos to the worker and detector store contracts.
type Store struct {
	db  *gorm.DB
	tx  *gorm.DB
	log *logger.Logger

	schedules   coachrepo.ScheduleRepo
	punishments coachrepo.PunishmentRepo
	actionLogs  coachrepo.ActionLogRepo
	commitments coachrepo.CommitmentRepo
}

func New(db *gorm.DB, baseLog *logger.Logger) *Store {
	return &Store{
		db:          db,
		log:         baseLog.With("component", "ScheduleStore"),
		schedules:   coachrepo.NewScheduleRepo(db, baseLog),
		punishments: coachrepo.NewPunishmentRepo(db, baseLog),
		actionLogs:  coachrepo.NewActionLogRepo(db, baseLog),
		commitments: coachrepo.NewCommitmentRepo(db, baseLog),
	}
}

var _ worker.Store = (*Store)(nil)

func (s *Store) dbc(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx, Tx: s.tx}
}

func (s *Store) withTx(tx *gorm.DB) *Store {
	cp := *s
	cp.tx = tx
	return &cp
}

// InTx runs fn against a transactional view. Nested calls reuse the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx worker.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.withTx(tx))
	})
}

func (s *Store) PunishmentExists(ctx context.Context, scheduleID uuid.UUID, mode coach.PunishmentMode, count int) (bool, error) {
	return s.punishments.Exists(s.dbc(ctx), scheduleID, mode, count)
}

func (s *Store) HasActionLog(ctx context.Context, scheduleID uuid.UUID, result coach.ActionResult) (bool, error) {
	return s.actionLogs.Exists(s.dbc(ctx), scheduleID, result)
}

func (s *Store) CountShockPunishments(ctx context.Context, ownerUserID string, from, to time.Time) (int, error) {
	n, err := s.punishments.CountShockForOwner(s.dbc(ctx), ownerUserID, from, to)
	return int(n), err
}

func (s *Store) RecordPunishment(ctx context.Context, p *coach.Punishment) (bool, error) {
	return s.punishments.InsertIfAbsent(s.dbc(ctx), p)
}

func (s *Store) AutoIgnore(ctx context.Context, scheduleID uuid.UUID, now time.Time) error {
	return s.InTx(ctx, func(txs worker.Store) error {
		tx := txs.(*Store)
		dbc := tx.dbc(ctx)
		if _, err := tx.schedules.Transition(dbc, scheduleID, []coach.ScheduleState{
			coach.StatePending, coach.StateProcessing, coach.StateDone, coach.StateSkipped, coach.StateFailed,
		}, coach.StateCanceled, now); err != nil {
			return fmt.Errorf("cancel schedule: %w", err)
		}
		logged, err := tx.actionLogs.Exists(dbc, scheduleID, coach.ResultAutoIgnore)
		if err != nil {
			return err
		}
		if logged {
			return nil
		}
		return tx.actionLogs.Create(dbc, &coach.ActionLog{
			ScheduleID: scheduleID,
			Result:     coach.ResultAutoIgnore,
			CreatedAt:  now,
		})
	})
}

func (s *Store) AnyActive(ctx context.Context) (bool, error) {
	return s.schedules.AnyActive(s.dbc(ctx))
}

func (s *Store) LatestActiveCommitmentOwner(ctx context.Context) (string, error) {
	return s.commitments.LatestActiveOwner(s.dbc(ctx))
}

func (s *Store) HasPlanOn(ctx context.Context, ownerUserID string, runDate string) (bool, error) {
	return s.schedules.HasPlanOn(s.dbc(ctx), ownerUserID, runDate)
}

func (s *Store) CreateSchedule(ctx context.Context, sch *coach.Schedule) error {
	_, err := s.schedules.Create(s.dbc(ctx), []*coach.Schedule{sch})
	return err
}

func (s *Store) ListDue(ctx context.Context, now time.Time) ([]*coach.Schedule, error) {
	return s.schedules.ListDue(s.dbc(ctx), now)
}

func (s *Store) ListMonitored(ctx context.Context, since, now time.Time) ([]*coach.Schedule, error) {
	return s.schedules.ListMonitored(s.dbc(ctx), since, now)
}

func (s *Store) ClaimSchedule(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return s.schedules.Transition(s.dbc(ctx), id, []coach.ScheduleState{coach.StatePending}, coach.StateProcessing, now)
}

func (s *Store) TransitionSchedule(ctx context.Context, id uuid.UUID, from, to coach.ScheduleState, now time.Time) (bool, error) {
	return s.schedules.Transition(s.dbc(ctx), id, []coach.ScheduleState{from}, to, now)
}

func (s *Store) RecordScheduleFailure(ctx context.Context, id uuid.UUID, f worker.Failure) error {
	updates := map[string]interface{}{
		"retry_count": f.RetryCount,
		"state":       f.State,
		"updated_at":  f.Now.UTC(),
	}
	if !f.RunAt.IsZero() {
		updates["run_at"] = f.RunAt.UTC()
		updates["run_date"] = f.RunAt.Format(coach.RunDateLayout)
	}
	return s.schedules.UpdateFields(s.dbc(ctx), id, updates)
}

func (s *Store) SetThreadTS(ctx context.Context, id uuid.UUID, ts string) error {
	return s.schedules.UpdateFields(s.dbc(ctx), id, map[string]interface{}{"thread_ts": ts})
}
