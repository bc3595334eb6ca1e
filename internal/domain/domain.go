package domain

import "github.com/yungbote/oni-coach-backend/internal/domain/coach"

const (
	EventPlan   = coach.EventPlan
	EventRemind = coach.EventRemind

	StatePending    = coach.StatePending
	StateProcessing = coach.StateProcessing
	StateDone       = coach.StateDone
	StateSkipped    = coach.StateSkipped
	StateFailed     = coach.StateFailed
	StateCanceled   = coach.StateCanceled

	ModeIgnore = coach.ModeIgnore
	ModeNo     = coach.ModeNo

	ResultYes        = coach.ResultYes
	ResultNo         = coach.ResultNo
	ResultAutoIgnore = coach.ResultAutoIgnore

	StimulusZap  = coach.StimulusZap
	StimulusVibe = coach.StimulusVibe
	StimulusBeep = coach.StimulusBeep
)

type (
	EventType      = coach.EventType
	ScheduleState  = coach.ScheduleState
	PunishmentMode = coach.PunishmentMode
	ActionResult   = coach.ActionResult
	StimulusType   = coach.StimulusType
	Stimulus       = coach.Stimulus

	Schedule       = coach.Schedule
	Punishment     = coach.Punishment
	ActionLog      = coach.ActionLog
	Commitment     = coach.Commitment
	Configuration  = coach.Configuration
	ConfigAuditLog = coach.ConfigAuditLog
)

// Models lists every persisted entity in migration order.
func Models() []any {
	return []any{
		&coach.Commitment{},
		&coach.Schedule{},
		&coach.Punishment{},
		&coach.ActionLog{},
		&coach.Configuration{},
		&coach.ConfigAuditLog{},
	}
}
