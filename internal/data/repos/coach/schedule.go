package coach

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/oni-coach-backend/internal/domain"
	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

type ScheduleRepo interface {
	Create(dbc dbctx.Context, rows []*types.Schedule) ([]*types.Schedule, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Schedule, error)
	AnyActive(dbc dbctx.Context) (bool, error)
	HasPlanOn(dbc dbctx.Context, ownerUserID string, runDate string) (bool, error)
	ListDue(dbc dbctx.Context, now time.Time) ([]*types.Schedule, error)
	ListMonitored(dbc dbctx.Context, since time.Time, now time.Time) ([]*types.Schedule, error)
	Transition(dbc dbctx.Context, id uuid.UUID, from []types.ScheduleState, to types.ScheduleState, now time.Time) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type scheduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScheduleRepo(db *gorm.DB, baseLog *logger.Logger) ScheduleRepo {
	return &scheduleRepo{
		db:  db,
		log: baseLog.With("repo", "ScheduleRepo"),
	}
}

func (r *scheduleRepo) Create(dbc dbctx.Context, rows []*types.Schedule) ([]*types.Schedule, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Schedule{}, nil
	}
	for _, s := range rows {
		s.RunAt = s.RunAt.UTC()
		if s.RunDate == "" {
			s.RunDate = s.RunAt.Format(coach.RunDateLayout)
		}
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *scheduleRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Schedule, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var s types.Schedule
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&s).Error; err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *scheduleRepo) AnyActive(dbc dbctx.Context) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Schedule{}).
		Where("state IN ?", []types.ScheduleState{types.StatePending, types.StateProcessing}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *scheduleRepo) HasPlanOn(dbc dbctx.Context, ownerUserID string, runDate string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if ownerUserID == "" || runDate == "" {
		return false, nil
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Schedule{}).
		Where("owner_user_id = ? AND event_type = ? AND run_date = ?", ownerUserID, types.EventPlan, runDate).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *scheduleRepo) ListDue(dbc dbctx.Context, now time.Time) ([]*types.Schedule, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Schedule
	if err := transaction.WithContext(dbc.Ctx).
		Where("state = ? AND run_at <= ?", types.StatePending, now.UTC()).
		Order("run_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListMonitored returns schedules still awaiting an answer: PLAN in
// processing, REMIND in processing or done, fired within [since, now], and
// without a YES log.
func (r *scheduleRepo) ListMonitored(dbc dbctx.Context, since time.Time, now time.Time) ([]*types.Schedule, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Schedule
	err := transaction.WithContext(dbc.Ctx).
		Where(`
        (
          (event_type = ? AND state = ?)
          OR (event_type = ? AND state IN ?)
        )
        AND run_at >= ? AND run_at <= ?
        AND NOT EXISTS (
          SELECT 1 FROM action_log
          WHERE action_log.schedule_id = schedule.id AND action_log.result = ?
        )
      `,
			types.EventPlan, types.StateProcessing,
			types.EventRemind, []types.ScheduleState{types.StateProcessing, types.StateDone},
			since.UTC(), now.UTC(),
			types.ResultYes,
		).
		Order("run_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Transition moves id to state `to` only if it is currently in one of from.
func (r *scheduleRepo) Transition(dbc dbctx.Context, id uuid.UUID, from []types.ScheduleState, to types.ScheduleState, now time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(from) == 0 {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Schedule{}).
		Where("id = ? AND state IN ?", id, from).
		Updates(map[string]interface{}{
			"state":      to,
			"updated_at": now.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *scheduleRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Schedule{}).
		Where("id = ?", id).
		Updates(updates).Error
}
