package coach

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/oni-coach-backend/internal/domain"
	"github.com/yungbote/oni-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

type ConfigurationRepo interface {
	GetByKey(dbc dbctx.Context, key string) (*types.Configuration, error)
	List(dbc dbctx.Context) ([]*types.Configuration, error)
	Save(dbc dbctx.Context, row *types.Configuration) error
	InsertIfAbsent(dbc dbctx.Context, row *types.Configuration) (bool, error)
	AppendAudit(dbc dbctx.Context, row *types.ConfigAuditLog) error
	ListAudit(dbc dbctx.Context, key string, limit int) ([]*types.ConfigAuditLog, error)
}

type configurationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConfigurationRepo(db *gorm.DB, baseLog *logger.Logger) ConfigurationRepo {
	return &configurationRepo{
		db:  db,
		log: baseLog.With("repo", "ConfigurationRepo"),
	}
}

func (r *configurationRepo) GetByKey(dbc dbctx.Context, key string) (*types.Configuration, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if key == "" {
		return nil, nil
	}
	var c types.Configuration
	if err := transaction.WithContext(dbc.Ctx).
		Where(map[string]interface{}{"key": key}).
		Limit(1).
		Find(&c).Error; err != nil {
		return nil, err
	}
	if c.Key == "" {
		return nil, nil
	}
	return &c, nil
}

func (r *configurationRepo) List(dbc dbctx.Context) ([]*types.Configuration, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Configuration
	if err := transaction.WithContext(dbc.Ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Save creates the row or bumps its version and overwrites the value.
func (r *configurationRepo) Save(dbc dbctx.Context, row *types.Configuration) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	existing, err := r.GetByKey(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, row.Key)
	if err != nil {
		return err
	}
	if existing == nil {
		if row.Version == 0 {
			row.Version = 1
		}
		return transaction.WithContext(dbc.Ctx).Create(row).Error
	}
	row.ID = existing.ID
	row.Version = existing.Version + 1
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Configuration{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"value":      row.Value,
			"value_type": row.ValueType,
			"version":    row.Version,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *configurationRepo) InsertIfAbsent(dbc dbctx.Context, row *types.Configuration) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row.Version == 0 {
		row.Version = 1
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *configurationRepo) AppendAudit(dbc dbctx.Context, row *types.ConfigAuditLog) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row.ChangedAt.IsZero() {
		row.ChangedAt = time.Now()
	}
	row.ChangedAt = row.ChangedAt.UTC()
	return transaction.WithContext(dbc.Ctx).Create(row).Error
}

func (r *configurationRepo) ListAudit(dbc dbctx.Context, key string, limit int) ([]*types.ConfigAuditLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.ConfigAuditLog
	if err := transaction.WithContext(dbc.Ctx).
		Where("config_key = ?", key).
		Order("changed_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
