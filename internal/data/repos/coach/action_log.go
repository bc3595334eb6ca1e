package coach

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/oni-coach-backend/internal/domain"
	"github.com/yungbote/oni-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

type ActionLogRepo interface {
	Create(dbc dbctx.Context, row *types.ActionLog) error
	Exists(dbc dbctx.Context, scheduleID uuid.UUID, result types.ActionResult) (bool, error)
	ListBySchedule(dbc dbctx.Context, scheduleID uuid.UUID) ([]*types.ActionLog, error)
}

type actionLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActionLogRepo(db *gorm.DB, baseLog *logger.Logger) ActionLogRepo {
	return &actionLogRepo{
		db:  db,
		log: baseLog.With("repo", "ActionLogRepo"),
	}
}

func (r *actionLogRepo) Create(dbc dbctx.Context, row *types.ActionLog) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	row.CreatedAt = row.CreatedAt.UTC()
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

func (r *actionLogRepo) Exists(dbc dbctx.Context, scheduleID uuid.UUID, result types.ActionResult) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ActionLog{}).
		Where("schedule_id = ? AND result = ?", scheduleID, result).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *actionLogRepo) ListBySchedule(dbc dbctx.Context, scheduleID uuid.UUID) ([]*types.ActionLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ActionLog
	if err := transaction.WithContext(dbc.Ctx).
		Where("schedule_id = ?", scheduleID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
