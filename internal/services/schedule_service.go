package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/oni-coach-backend/internal/config"
	coachrepo "github.com/yungbote/oni-coach-backend/internal/data/repos/coach"
	types "github.com/yungbote/oni-coach-backend/internal/domain"
	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/oni-coach-backend/internal/platform/envutil"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

type StringConfig interface {
	String(ctx context.Context, key string, def string) string
}

type ScheduleDetail struct {
	Schedule    *types.Schedule     `json:"schedule"`
	Punishments []*types.Punishment `json:"punishments"`
	ActionLogs  []*types.ActionLog  `json:"action_logs"`
}

type PlanTask struct {
	Task string `json:"task"`
	Time string `json:"time"`
}

type PlanSubmission struct {
	Tasks      []PlanTask `json:"tasks"`
	NextPlanAt *time.Time `json:"next_plan_at,omitempty"`
}

type PlanResult struct {
	Reminders []*types.Schedule `json:"reminders"`
	Skipped   []PlanTask        `json:"skipped,omitempty"`
	NextPlan  *types.Schedule   `json:"next_plan"`
}

type ScheduleService interface {
	Get(dbc dbctx.Context, id uuid.UUID) (*ScheduleDetail, error)
	// RecordResponse stores a YES or NO answer. recorded=false means the same answer was already stored.
	RecordResponse(dbc dbctx.Context, id uuid.UUID, result types.ActionResult, comment string) (recorded bool, err error)
	SubmitPlan(dbc dbctx.Context, planID uuid.UUID, sub PlanSubmission) (*PlanResult, error)
}

type scheduleService struct {
	db          *gorm.DB
	log         *logger.Logger
	schedules   coachrepo.ScheduleRepo
	punishments coachrepo.PunishmentRepo
	actionLogs  coachrepo.ActionLogRepo
	cfg         StringConfig
	now         func() time.Time
}

func NewScheduleService(
	db *gorm.DB,
	baseLog *logger.Logger,
	schedules coachrepo.ScheduleRepo,
	punishments coachrepo.PunishmentRepo,
	actionLogs coachrepo.ActionLogRepo,
	cfg StringConfig,
) ScheduleService {
	loc := envutil.Location("TIMEZONE")
	return &scheduleService{
		db:          db,
		log:         baseLog.With("service", "ScheduleService"),
		schedules:   schedules,
		punishments: punishments,
		actionLogs:  actionLogs,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().In(loc) },
	}
}

// NewScheduleServiceWithClock is NewScheduleService with an injected clock.
// The clock's location decides calendar days.
func NewScheduleServiceWithClock(
	db *gorm.DB,
	baseLog *logger.Logger,
	schedules coachrepo.ScheduleRepo,
	punishments coachrepo.PunishmentRepo,
	actionLogs coachrepo.ActionLogRepo,
	cfg StringConfig,
	now func() time.Time,
) ScheduleService {
	s := NewScheduleService(db, baseLog, schedules, punishments, actionLogs, cfg).(*scheduleService)
	if now != nil {
		s.now = now
	}
	return s
}

func (s *scheduleService) Get(dbc dbctx.Context, id uuid.UUID) (*ScheduleDetail, error) {
	row, err := s.schedules.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("schedule %s: %w", id, coach.ErrNotFound)
	}
	ps, err := s.punishments.ListBySchedule(dbc, id)
	if err != nil {
		return nil, err
	}
	logs, err := s.actionLogs.ListBySchedule(dbc, id)
	if err != nil {
		return nil, err
	}
	return &ScheduleDetail{Schedule: row, Punishments: ps, ActionLogs: logs}, nil
}

func (s *scheduleService) RecordResponse(dbc dbctx.Context, id uuid.UUID, result types.ActionResult, comment string) (bool, error) {
	if result != coach.ResultYes && result != coach.ResultNo {
		return false, fmt.Errorf("%w: result must be YES or NO, got %q", coach.ErrInvalidArgument, result)
	}
	comment = strings.TrimSpace(comment)
	recorded := false

	err := s.inTx(dbc, func(tx dbctx.Context) error {
		row, err := s.schedules.GetByID(tx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("schedule %s: %w", id, coach.ErrNotFound)
		}
		if row.State != coach.StateProcessing && row.State != coach.StateDone {
			return fmt.Errorf("%w: schedule %s is %s", coach.ErrConflict, id, row.State)
		}

		if dup, err := s.actionLogs.Exists(tx, id, result); err != nil {
			return err
		} else if dup {
			return nil
		}
		if result == coach.ResultNo {
			answered, err := s.actionLogs.Exists(tx, id, coach.ResultYes)
			if err != nil {
				return err
			}
			if answered {
				return fmt.Errorf("%w: schedule %s already answered YES", coach.ErrConflict, id)
			}
		}

		if err := s.actionLogs.Create(tx, &types.ActionLog{ScheduleID: id, Result: result, CreatedAt: s.now()}); err != nil {
			return err
		}

		updates := map[string]interface{}{"updated_at": s.now().UTC()}
		if comment != "" {
			if result == coach.ResultYes {
				updates["yes_comment"] = comment
			} else {
				updates["no_comment"] = comment
			}
		}
		if err := s.schedules.UpdateFields(tx, id, updates); err != nil {
			return err
		}
		if result == coach.ResultYes {
			if _, err := s.schedules.Transition(tx, id, []types.ScheduleState{coach.StateProcessing}, coach.StateDone, s.now()); err != nil {
				return err
			}
		}
		recorded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if recorded {
		s.log.Info("response recorded", "schedule_id", id, "result", result)
	}
	return recorded, nil
}

func (s *scheduleService) SubmitPlan(dbc dbctx.Context, planID uuid.UUID, sub PlanSubmission) (*PlanResult, error) {
	now := s.now()

	type slot struct {
		task PlanTask
		at   time.Time
	}
	slots := make([]slot, 0, len(sub.Tasks))
	for _, t := range sub.Tasks {
		t.Task = strings.TrimSpace(t.Task)
		if t.Task == "" {
			return nil, fmt.Errorf("%w: task name required", coach.ErrInvalidArgument)
		}
		_, offset, err := coach.ParseClock(strings.TrimSpace(t.Time))
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot{task: t, at: coach.At(now, offset)})
	}

	nextAt, err := s.nextPlanAt(dbc.Ctx, now, sub.NextPlanAt)
	if err != nil {
		return nil, err
	}

	out := &PlanResult{}
	err = s.inTx(dbc, func(tx dbctx.Context) error {
		plan, err := s.schedules.GetByID(tx, planID)
		if err != nil {
			return err
		}
		if plan == nil || plan.EventType != coach.EventPlan {
			return fmt.Errorf("plan %s: %w", planID, coach.ErrNotFound)
		}
		ok, err := s.schedules.Transition(tx, planID, []types.ScheduleState{coach.StateProcessing}, coach.StateDone, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: plan %s is %s", coach.ErrConflict, planID, plan.State)
		}

		rows := make([]*types.Schedule, 0, len(slots)+1)
		for _, sl := range slots {
			if !sl.at.After(now) {
				out.Skipped = append(out.Skipped, sl.task)
				continue
			}
			r := coach.NewSchedule(plan.OwnerUserID, coach.EventRemind, sl.at)
			task := sl.task.Task
			r.Comment = &task
			rows = append(rows, r)
			out.Reminders = append(out.Reminders, r)
		}
		next := coach.NewSchedule(plan.OwnerUserID, coach.EventPlan, nextAt)
		rows = append(rows, next)
		out.NextPlan = next

		if _, err := s.schedules.Create(tx, rows); err != nil {
			return fmt.Errorf("create schedules: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("plan submitted",
		"plan_id", planID, "reminders", len(out.Reminders), "skipped", len(out.Skipped), "next_plan_at", nextAt,
	)
	return out, nil
}

// nextPlanAt defaults to tomorrow at PLAN_DEFAULT_TIME in the coach timezone.
func (s *scheduleService) nextPlanAt(ctx context.Context, now time.Time, requested *time.Time) (time.Time, error) {
	if requested != nil {
		if !requested.After(now) {
			return time.Time{}, fmt.Errorf("%w: next_plan_at must be in the future", coach.ErrInvalidArgument)
		}
		return requested.In(now.Location()), nil
	}
	raw := s.cfg.String(ctx, config.KeyPlanDefaultTime, config.DefaultPlanDefaultTime)
	_, offset, err := coach.ParseClock(raw)
	if err != nil {
		s.log.Warn("invalid PLAN_DEFAULT_TIME, using default", "value", raw)
		_, offset, _ = coach.ParseClock(config.DefaultPlanDefaultTime)
	}
	return coach.At(now.AddDate(0, 0, 1), offset), nil
}

func (s *scheduleService) inTx(dbc dbctx.Context, fn func(tx dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: dbc.Ctx, Tx: tx})
	})
}
