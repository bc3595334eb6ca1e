package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/oni-coach-backend/internal/config"
	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/observability"
)

type outcome int

const (
	outcomeDelivered outcome = iota
	outcomeCapReached
	outcomeSendFailed
	outcomeAlreadyRecorded
)

func (o outcome) String() string {
	switch o {
	case outcomeDelivered:
		return "delivered"
	case outcomeCapReached:
		return "cap_reached"
	case outcomeSendFailed:
		return "send_failed"
	case outcomeAlreadyRecorded:
		return "already_recorded"
	default:
		return "unknown"
	}
}

// deliver enforces the owner's daily shock cap, sends the stimulus and records
// the trigger. Both tracks share it so the cap counts across them.
// Only store failures are returned as errors.
func (d *Detector) deliver(ctx context.Context, s *coach.Schedule, mode coach.PunishmentMode, index int, stim coach.Stimulus, now time.Time) (res outcome, err error) {
	defer func() {
		if err == nil {
			observability.Current().IncTrigger(string(mode), res.String())
		}
	}()

	if stim.Type == coach.StimulusZap {
		limit := positive(d.cfg.Int(ctx, config.KeyLimitDayPavlokCounts, config.DefaultLimitDayPavlokCounts), 1)
		from, to := dayWindow(now)
		count, err := d.store.CountShockPunishments(ctx, s.OwnerUserID, from, to)
		if err != nil {
			return 0, fmt.Errorf("daily cap count: %w", err)
		}
		if count >= limit {
			d.log.Info("daily stimulus cap reached",
				"schedule_id", s.ID, "owner_user_id", s.OwnerUserID,
				"mode", mode, "trigger_index", index, "count", count, "limit", limit,
			)
			return outcomeCapReached, nil
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	err = d.sender.Send(sendCtx, stim)
	cancel()
	if err != nil {
		d.log.Warn("stimulus delivery failed",
			"schedule_id", s.ID, "mode", mode, "trigger_index", index,
			"stimulus", stim.Type, "intensity", stim.Intensity, "error", err,
		)
		return outcomeSendFailed, nil
	}
	observability.Current().IncStimulus(string(stim.Type))

	created, err := d.store.RecordPunishment(ctx, &coach.Punishment{
		ScheduleID: s.ID,
		Mode:       mode,
		Count:      index,
		CreatedAt:  now,
	})
	if err != nil {
		return 0, fmt.Errorf("record punishment: %w", err)
	}
	if !created {
		d.log.Warn("punishment already recorded by another worker",
			"schedule_id", s.ID, "mode", mode, "trigger_index", index,
		)
		return outcomeAlreadyRecorded, nil
	}

	d.log.Info("stimulus delivered",
		"schedule_id", s.ID, "owner_user_id", s.OwnerUserID, "mode", mode,
		"trigger_index", index, "stimulus", stim.Type, "intensity", stim.Intensity,
	)
	return outcomeDelivered, nil
}

// dayWindow returns [midnight, next midnight) of now's calendar day in now's location.
func dayWindow(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}
