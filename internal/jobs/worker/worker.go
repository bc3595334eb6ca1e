package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/oni-coach-backend/internal/config"
	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/observability"
	"github.com/yungbote/oni-coach-backend/internal/platform/envutil"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

// MaxScheduleRetries bounds how many times a failed schedule goes back to PENDING.
const MaxScheduleRetries = 3

type Worker struct {
	store    Store
	notifier Notifier
	detector Detector
	cfg      Config
	log      *logger.Logger
	tracer   trace.Tracer

	now           func() time.Time
	pollInterval  time.Duration
	notifyTimeout time.Duration

	cycle sync.Mutex
}

func NewWorker(store Store, notifier Notifier, detector Detector, cfg Config, baseLog *logger.Logger) *Worker {
	loc := envutil.Location("TIMEZONE")
	return &Worker{
		store:         store,
		notifier:      notifier,
		detector:      detector,
		cfg:           cfg,
		log:           baseLog.With("component", "ScheduleWorker"),
		tracer:        otel.Tracer("oni/worker"),
		now:           func() time.Time { return time.Now().In(loc) },
		pollInterval:  envutil.Seconds("WORKER_POLL_SECONDS", 60*time.Second),
		notifyTimeout: envutil.Seconds("SLACK_TIMEOUT_SECONDS", 5*time.Second),
	}
}

// WithClock replaces the wall clock. The returned time's location decides the calendar day.
func (w *Worker) WithClock(now func() time.Time) *Worker {
	if now != nil {
		w.now = now
	}
	return w
}

// Start runs a cycle immediately and then on every poll tick until ctx is done.
func (w *Worker) Start(ctx context.Context) error {
	w.log.Info("Starting schedule worker", "poll_interval", w.pollInterval.String())

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Schedule worker stopped")
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if err := w.RunOnce(ctx); err != nil {
		w.log.Warn("worker cycle skipped", "error", err)
	}
}

// RunOnce executes one poll cycle. Cycles never overlap; a concurrent call
// returns ErrCycleInProgress. All other failures are logged, not returned.
func (w *Worker) RunOnce(ctx context.Context) error {
	if !w.cycle.TryLock() {
		return ErrCycleInProgress
	}
	defer w.cycle.Unlock()

	ctx, span := w.tracer.Start(ctx, "worker.run_once")
	defer span.End()

	started := time.Now()
	result := "ok"
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("worker cycle panic", "panic", r)
			span.SetStatus(codes.Error, "panic")
			result = "panic"
		}
		observability.Current().ObserveWorkerCycle(result, time.Since(started), time.Now())
	}()

	if w.cfg.Bool(ctx, config.KeySystemPaused, false) {
		w.log.Info("system paused, skipping cycle")
		span.SetAttributes(attribute.Bool("paused", true))
		result = "paused"
		return nil
	}

	now := w.now()
	if err := w.bootstrap(ctx, now); err != nil {
		w.log.Warn("bootstrap failed", "error", err)
		span.RecordError(err)
	}

	due, err := w.store.ListDue(ctx, now)
	if err != nil {
		w.log.Warn("ListDue failed", "error", err)
		span.RecordError(err)
	}
	span.SetAttributes(attribute.Int("due", len(due)))
	for _, s := range due {
		w.ProcessSchedule(ctx, s)
	}

	w.sweep(ctx)
	return nil
}

// bootstrap seeds the first PLAN of a cycle when nothing is in flight.
func (w *Worker) bootstrap(ctx context.Context, now time.Time) error {
	return w.store.InTx(ctx, func(tx Store) error {
		active, err := tx.AnyActive(ctx)
		if err != nil {
			return fmt.Errorf("active check: %w", err)
		}
		if active {
			return nil
		}
		owner, err := tx.LatestActiveCommitmentOwner(ctx)
		if err != nil {
			return fmt.Errorf("commitment owner: %w", err)
		}
		if owner == "" {
			return nil
		}
		has, err := tx.HasPlanOn(ctx, owner, now.Format(coach.RunDateLayout))
		if err != nil {
			return fmt.Errorf("plan lookup: %w", err)
		}
		if has {
			return nil
		}
		plan := coach.NewSchedule(owner, coach.EventPlan, now)
		if err := tx.CreateSchedule(ctx, plan); err != nil {
			return fmt.Errorf("create plan: %w", err)
		}
		w.log.Info("bootstrapped plan", "schedule_id", plan.ID, "owner_user_id", owner)
		return nil
	})
}

// ProcessSchedule claims s, posts its prompt, runs both detectors and settles
// its state. Failures go through the bounded retry policy.
func (w *Worker) ProcessSchedule(ctx context.Context, s *coach.Schedule) {
	ctx, span := w.tracer.Start(ctx, "worker.process_schedule", trace.WithAttributes(
		attribute.String("schedule_id", s.ID.String()),
		attribute.String("event_type", string(s.EventType)),
	))
	defer span.End()

	claimed, err := w.store.ClaimSchedule(ctx, s.ID, w.now())
	if err != nil {
		w.log.Warn("ClaimSchedule failed", "schedule_id", s.ID, "error", err)
		span.RecordError(err)
		return
	}
	if !claimed {
		w.log.Debug("schedule claimed elsewhere", "schedule_id", s.ID)
		return
	}
	s.State = coach.StateProcessing

	if err := w.execute(ctx, s); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.handleFailure(ctx, s, err)
	}
	observability.Current().IncSchedule(string(s.EventType), string(s.State))
}

func (w *Worker) execute(ctx context.Context, s *coach.Schedule) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("schedule processing panic", "schedule_id", s.ID, "panic", r)
			err = errFromRecover(r)
		}
	}()

	if !s.EventType.Valid() {
		return Permanent("dispatch", &unknownEventError{EventType: string(s.EventType)})
	}

	notifyCtx, cancel := context.WithTimeout(ctx, w.notifyTimeout)
	ts, err := w.notifier.Notify(notifyCtx, s)
	cancel()
	if err != nil {
		return fmt.Errorf("notify %s: %w", s.EventType, err)
	}
	if ts != "" {
		if err := w.store.SetThreadTS(ctx, s.ID, ts); err != nil {
			return fmt.Errorf("store thread ts: %w", err)
		}
		s.ThreadTS = &ts
	}

	if err := w.runDetectors(ctx, s, false); err != nil {
		return err
	}

	if s.EventType == coach.EventRemind {
		ok, err := w.store.TransitionSchedule(ctx, s.ID, coach.StateProcessing, coach.StateDone, w.now())
		if err != nil {
			return fmt.Errorf("complete remind: %w", err)
		}
		if ok {
			s.State = coach.StateDone
		}
	}
	return nil
}

// runDetectors runs the escalation tracks for s. With routed set, a schedule
// answered NO runs only the refusal track and any other only the silence track.
func (w *Worker) runDetectors(ctx context.Context, s *coach.Schedule, routed bool) error {
	now := w.now()
	runIgnore, runNo := true, true
	if routed {
		refused, err := w.store.HasActionLog(ctx, s.ID, coach.ResultNo)
		if err != nil {
			return fmt.Errorf("refusal lookup: %w", err)
		}
		runIgnore, runNo = !refused, refused
	}

	if runIgnore {
		res, err := w.detector.DetectIgnore(ctx, s, now)
		if err != nil {
			return fmt.Errorf("detect ignore: %w", err)
		}
		if res.Detected {
			w.log.Info("ignore-mode escalation", "schedule_id", s.ID, "trigger_index", res.TriggerIndex)
		}
	}
	if runNo {
		res, err := w.detector.DetectNo(ctx, s, now)
		if err != nil {
			return fmt.Errorf("detect no: %w", err)
		}
		if res.Detected {
			w.log.Info("no-mode escalation", "schedule_id", s.ID, "trigger_index", res.TriggerIndex)
		}
	}
	return nil
}

func (w *Worker) handleFailure(ctx context.Context, s *coach.Schedule, cause error) {
	now := w.now()
	f := Failure{
		RetryCount: s.RetryCount + 1,
		State:      coach.StateFailed,
		Now:        now,
	}
	retryable := IsRetryable(cause)
	if retryable && f.RetryCount <= MaxScheduleRetries {
		delay := w.cfg.Int(ctx, config.KeyRetryDelay, config.DefaultRetryDelayMinutes)
		if delay <= 0 {
			delay = config.DefaultRetryDelayMinutes
		}
		f.State = coach.StatePending
		f.RunAt = now.Add(time.Duration(delay) * time.Minute)
	}

	if err := w.store.RecordScheduleFailure(ctx, s.ID, f); err != nil {
		w.log.Error("RecordScheduleFailure failed",
			"schedule_id", s.ID, "cause", cause, "error", err,
		)
		return
	}
	s.RetryCount = f.RetryCount
	s.State = f.State
	if !f.RunAt.IsZero() {
		s.SetRunAt(f.RunAt)
	}

	if f.State == coach.StatePending {
		w.log.Warn("schedule failed, retry scheduled",
			"schedule_id", s.ID, "retry_count", f.RetryCount, "run_at", f.RunAt, "error", cause,
		)
		return
	}
	w.log.Error("schedule failed permanently",
		"schedule_id", s.ID, "retry_count", f.RetryCount, "retryable", retryable, "error", cause,
	)
}
