package coach

import (
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/oni-coach-backend/internal/domain"
	"github.com/yungbote/oni-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

type CommitmentRepo interface {
	Create(dbc dbctx.Context, rows []*types.Commitment) ([]*types.Commitment, error)
	ListActiveByOwner(dbc dbctx.Context, ownerUserID string) ([]*types.Commitment, error)
	DeactivateByOwner(dbc dbctx.Context, ownerUserID string) (int64, error)
	LatestActiveOwner(dbc dbctx.Context) (string, error)
}

type commitmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommitmentRepo(db *gorm.DB, baseLog *logger.Logger) CommitmentRepo {
	return &commitmentRepo{
		db:  db,
		log: baseLog.With("repo", "CommitmentRepo"),
	}
}

func (r *commitmentRepo) Create(dbc dbctx.Context, rows []*types.Commitment) ([]*types.Commitment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Commitment{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *commitmentRepo) ListActiveByOwner(dbc dbctx.Context, ownerUserID string) ([]*types.Commitment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Commitment
	if err := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ? AND active = ?", ownerUserID, true).
		Order("time_of_day ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *commitmentRepo) DeactivateByOwner(dbc dbctx.Context, ownerUserID string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Commitment{}).
		Where("owner_user_id = ? AND active = ?", ownerUserID, true).
		Updates(map[string]interface{}{
			"active":     false,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// LatestActiveOwner returns the owner of the most recently updated active
// commitment, or "" when there is none.
func (r *commitmentRepo) LatestActiveOwner(dbc dbctx.Context) (string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var c types.Commitment
	if err := transaction.WithContext(dbc.Ctx).
		Where("active = ?", true).
		Order("updated_at DESC").
		Limit(1).
		Find(&c).Error; err != nil {
		return "", err
	}
	return c.OwnerUserID, nil
}
