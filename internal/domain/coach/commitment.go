package coach

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Commitment is a recurring daily task an owner wants to be reminded about.
type Commitment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID string    `gorm:"column:owner_user_id;not null;index" json:"owner_user_id"`
	Time        string    `gorm:"column:time_of_day;not null" json:"time"`
	Task        string    `gorm:"column:task;not null" json:"task"`
	Active      bool      `gorm:"column:active;not null;index" json:"active"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Commitment) TableName() string { return "commitment" }

func (c *Commitment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ParseClock accepts "HH:MM" or "HH:MM:SS" and returns the normalized
// "HH:MM:SS" form plus the offset from midnight.
func ParseClock(raw string) (string, time.Duration, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		d := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
		return t.Format("15:04:05"), d, nil
	}
	return "", 0, fmt.Errorf("%w: invalid time %q", ErrInvalidArgument, raw)
}

// At returns the instant the clock offset falls on, on day's calendar date in day's location.
func At(day time.Time, offset time.Duration) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, day.Location()).Add(offset)
}
