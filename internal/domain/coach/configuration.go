package coach

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ConfigValueType string

const (
	ValueInt   ConfigValueType = "int"
	ValueFloat ConfigValueType = "float"
	ValueStr   ConfigValueType = "str"
	ValueBool  ConfigValueType = "bool"
	ValueJSON  ConfigValueType = "json"
)

type ChangeSource string

const (
	SourceSlackCommand ChangeSource = "slack_command"
	SourceRollback     ChangeSource = "rollback"
	SourceReset        ChangeSource = "reset"
	SourceMigration    ChangeSource = "migration"
	SourceAPI          ChangeSource = "api"
)

// Configuration is a runtime-tunable key stored in the database.
type Configuration struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Key          string          `gorm:"column:key;not null;uniqueIndex" json:"key"`
	Value        string          `gorm:"column:value;not null" json:"value"`
	ValueType    ConfigValueType `gorm:"column:value_type;not null" json:"value_type"`
	Description  string          `gorm:"column:description" json:"description,omitempty"`
	DefaultValue string          `gorm:"column:default_value" json:"default_value,omitempty"`
	MinValue     *float64        `gorm:"column:min_value" json:"min_value,omitempty"`
	MaxValue     *float64        `gorm:"column:max_value" json:"max_value,omitempty"`
	ValidValues  datatypes.JSON  `gorm:"column:valid_values" json:"valid_values,omitempty"`
	Version      int             `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt    time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updated_at"`
}

func (Configuration) TableName() string { return "configuration" }

func (c *Configuration) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type ConfigAuditLog struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ConfigKey    string       `gorm:"column:config_key;not null;index" json:"config_key"`
	OldValue     *string      `gorm:"column:old_value" json:"old_value,omitempty"`
	NewValue     string       `gorm:"column:new_value;not null" json:"new_value"`
	ChangedBy    string       `gorm:"column:changed_by;not null" json:"changed_by"`
	ChangedAt    time.Time    `gorm:"column:changed_at;not null;index" json:"changed_at"`
	ChangeSource ChangeSource `gorm:"column:change_source;not null" json:"change_source"`
}

func (ConfigAuditLog) TableName() string { return "config_audit_log" }

func (a *ConfigAuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
