package coach

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActionResult string

const (
	ResultYes        ActionResult = "YES"
	ResultNo         ActionResult = "NO"
	ResultAutoIgnore ActionResult = "AUTO_IGNORE"
)

type ActionLog struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleID uuid.UUID    `gorm:"type:uuid;column:schedule_id;not null;index" json:"schedule_id"`
	Result     ActionResult `gorm:"column:result;not null;index" json:"result"`
	CreatedAt  time.Time    `gorm:"not null;index" json:"created_at"`
}

func (ActionLog) TableName() string { return "action_log" }

func (a *ActionLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
