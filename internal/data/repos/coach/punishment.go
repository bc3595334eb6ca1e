package coach

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/oni-coach-backend/internal/domain"
	"github.com/yungbote/oni-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

type PunishmentRepo interface {
	Exists(dbc dbctx.Context, scheduleID uuid.UUID, mode types.PunishmentMode, count int) (bool, error)
	InsertIfAbsent(dbc dbctx.Context, p *types.Punishment) (bool, error)
	CountShockForOwner(dbc dbctx.Context, ownerUserID string, from time.Time, to time.Time) (int64, error)
	ListBySchedule(dbc dbctx.Context, scheduleID uuid.UUID) ([]*types.Punishment, error)
}

type punishmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPunishmentRepo(db *gorm.DB, baseLog *logger.Logger) PunishmentRepo {
	return &punishmentRepo{
		db:  db,
		log: baseLog.With("repo", "PunishmentRepo"),
	}
}

func (r *punishmentRepo) Exists(dbc dbctx.Context, scheduleID uuid.UUID, mode types.PunishmentMode, count int) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Punishment{}).
		Where("schedule_id = ? AND mode = ? AND count = ?", scheduleID, mode, count).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertIfAbsent inserts p unless (schedule_id, mode, count) already exists.
// created=false means another writer recorded the trigger first.
func (r *punishmentRepo) InsertIfAbsent(dbc dbctx.Context, p *types.Punishment) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if p == nil || p.ScheduleID == uuid.Nil {
		return false, nil
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.CreatedAt = p.CreatedAt.UTC()
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "schedule_id"}, {Name: "mode"}, {Name: "count"}},
			DoNothing: true,
		}).
		Create(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountShockForOwner counts the owner's shock-graduated punishments created in [from, to):
// every NO-mode row plus IGNORE-mode rows with count >= 2.
func (r *punishmentRepo) CountShockForOwner(dbc dbctx.Context, ownerUserID string, from time.Time, to time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Punishment{}).
		Joins("JOIN schedule ON schedule.id = punishment.schedule_id").
		Where("schedule.owner_user_id = ?", ownerUserID).
		Where("punishment.created_at >= ? AND punishment.created_at < ?", from.UTC(), to.UTC()).
		Where("(punishment.mode = ? OR (punishment.mode = ? AND punishment.count >= 2))", types.ModeNo, types.ModeIgnore).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *punishmentRepo) ListBySchedule(dbc dbctx.Context, scheduleID uuid.UUID) ([]*types.Punishment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Punishment
	if err := transaction.WithContext(dbc.Ctx).
		Where("schedule_id = ?", scheduleID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
