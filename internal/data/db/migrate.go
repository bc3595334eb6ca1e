package db

import (
	"fmt"

	types "github.com/yungbote/oni-coach-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// Idempotence key for escalation triggers.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uix_schedule_mode_count
		ON punishment (schedule_id, mode, count);
	`).Error; err != nil {
		return fmt.Errorf("create uix_schedule_mode_count: %w", err)
	}

	// At most one open PLAN per owner per day.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uix_owner_plan_date_active
		ON schedule (owner_user_id, run_date)
		WHERE event_type = 'plan' AND state IN ('pending', 'processing');
	`).Error; err != nil {
		return fmt.Errorf("create uix_owner_plan_date_active: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_schedule_state_run_at
		ON schedule (state, run_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_schedule_state_run_at: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_action_log_schedule_result
		ON action_log (schedule_id, result);
	`).Error; err != nil {
		return fmt.Errorf("create idx_action_log_schedule_result: %w", err)
	}

	return nil
}
