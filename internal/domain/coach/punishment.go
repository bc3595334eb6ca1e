package coach

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PunishmentMode names the escalation track a trigger belongs to.
type PunishmentMode string

const (
	ModeIgnore PunishmentMode = "ignore"
	ModeNo     PunishmentMode = "no"
)

// Punishment records one fired escalation trigger. (ScheduleID, Mode, Count)
// is unique; Count is the trigger index.
type Punishment struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleID uuid.UUID      `gorm:"type:uuid;column:schedule_id;not null;index" json:"schedule_id"`
	Mode       PunishmentMode `gorm:"column:mode;not null" json:"mode"`
	Count      int            `gorm:"column:count;not null" json:"count"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
}

func (Punishment) TableName() string { return "punishment" }

func (p *Punishment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Shock reports whether the row counts toward the owner's daily cap.
func (p Punishment) Shock() bool {
	return p.Mode == ModeNo || (p.Mode == ModeIgnore && p.Count >= 2)
}

type StimulusType string

const (
	StimulusZap  StimulusType = "zap"
	StimulusVibe StimulusType = "vibe"
	StimulusBeep StimulusType = "beep"
)

const MaxIntensity = 100

type Stimulus struct {
	Type      StimulusType `json:"type"`
	Intensity int          `json:"intensity"`
}

func (s Stimulus) Valid() bool {
	switch s.Type {
	case StimulusZap, StimulusVibe, StimulusBeep:
	default:
		return false
	}
	return s.Intensity >= 0 && s.Intensity <= MaxIntensity
}
