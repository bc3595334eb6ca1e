package coach

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventType string

const (
	EventPlan   EventType = "plan"
	EventRemind EventType = "remind"
)

func (e EventType) Valid() bool {
	return e == EventPlan || e == EventRemind
}

type ScheduleState string

const (
	StatePending    ScheduleState = "pending"
	StateProcessing ScheduleState = "processing"
	StateDone       ScheduleState = "done"
	StateSkipped    ScheduleState = "skipped"
	StateFailed     ScheduleState = "failed"
	StateCanceled   ScheduleState = "canceled"
)

// Active reports whether the state counts toward the one-open-plan-per-day rule.
func (s ScheduleState) Active() bool {
	return s == StatePending || s == StateProcessing
}

// RunDateLayout is the calendar-day key stored in Schedule.RunDate.
const RunDateLayout = "2006-01-02"

type Schedule struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID string        `gorm:"column:owner_user_id;not null;index" json:"owner_user_id"`
	EventType   EventType     `gorm:"column:event_type;not null;index" json:"event_type"`
	RunAt       time.Time     `gorm:"column:run_at;not null;index" json:"run_at"`
	RunDate     string        `gorm:"column:run_date;not null;index" json:"run_date"`
	State       ScheduleState `gorm:"column:state;not null;index" json:"state"`
	ThreadTS    *string       `gorm:"column:thread_ts" json:"thread_ts,omitempty"`
	Comment     *string       `gorm:"column:comment" json:"comment,omitempty"`
	YesComment  *string       `gorm:"column:yes_comment" json:"yes_comment,omitempty"`
	NoComment   *string       `gorm:"column:no_comment" json:"no_comment,omitempty"`
	RetryCount  int           `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	CreatedAt   time.Time     `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updated_at"`
}

func (Schedule) TableName() string { return "schedule" }

func (s *Schedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SetRunAt stores t in UTC and derives RunDate from t's own location.
func (s *Schedule) SetRunAt(t time.Time) {
	s.RunDate = t.Format(RunDateLayout)
	s.RunAt = t.UTC()
}

// NewSchedule builds a PENDING schedule firing at runAt.
func NewSchedule(owner string, kind EventType, runAt time.Time) *Schedule {
	s := &Schedule{
		ID:          uuid.New(),
		OwnerUserID: owner,
		EventType:   kind,
		State:       StatePending,
	}
	s.SetRunAt(runAt)
	return s
}
