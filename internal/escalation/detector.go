package escalation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/oni-coach-backend/internal/config"
	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/platform/envutil"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

// Result reports whether a trigger fired for the schedule and which one.
type Result struct {
	Detected     bool
	TriggerIndex int
}

type Detector struct {
	store       Store
	sender      StimulusSender
	cfg         Config
	log         *logger.Logger
	tracer      trace.Tracer
	sendTimeout time.Duration
}

func NewDetector(store Store, sender StimulusSender, cfg Config, baseLog *logger.Logger) *Detector {
	return &Detector{
		store:       store,
		sender:      sender,
		cfg:         cfg,
		log:         baseLog.With("component", "EscalationDetector"),
		tracer:      otel.Tracer("oni/escalation"),
		sendTimeout: envutil.Seconds("PAVLOK_TIMEOUT_SECONDS", 5*time.Second),
	}
}

// WithSendTimeout overrides the per-delivery timeout.
func (d *Detector) WithSendTimeout(timeout time.Duration) *Detector {
	if timeout > 0 {
		d.sendTimeout = timeout
	}
	return d
}

// DetectIgnore runs the silence track for s at now.
func (d *Detector) DetectIgnore(ctx context.Context, s *coach.Schedule, now time.Time) (Result, error) {
	ctx, span := d.tracer.Start(ctx, "escalation.detect_ignore", trace.WithAttributes(
		attribute.String("schedule_id", s.ID.String()),
	))
	defer span.End()

	interval := positive(d.cfg.Int(ctx, config.KeyIgnoreInterval, config.DefaultIgnoreInterval), config.DefaultIgnoreInterval)
	elapsed := elapsedSeconds(s.RunAt, now)
	if elapsed < interval {
		return Result{}, nil
	}
	index := elapsed / interval
	span.SetAttributes(attribute.Int("trigger_index", index))

	exists, err := d.store.PunishmentExists(ctx, s.ID, coach.ModeIgnore, index)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("ignore-mode lookup: %w", err)
	}
	if exists {
		return Result{Detected: true, TriggerIndex: index}, nil
	}

	maxRetry := positive(d.cfg.Int(ctx, config.KeyIgnoreMaxRetry, config.DefaultIgnoreMaxRetry), 1)
	if index > maxRetry {
		if err := d.store.AutoIgnore(ctx, s.ID, now); err != nil {
			span.RecordError(err)
			return Result{}, fmt.Errorf("auto-ignore: %w", err)
		}
		d.log.Info("schedule auto-ignored after max retry",
			"schedule_id", s.ID, "trigger_index", index, "max_retry", maxRetry,
		)
		return Result{Detected: true, TriggerIndex: index}, nil
	}

	stim := IgnorePunishment(index)
	out, err := d.deliver(ctx, s, coach.ModeIgnore, index, stim, now)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	switch out {
	case outcomeSendFailed:
		return Result{Detected: false, TriggerIndex: index}, nil
	case outcomeDelivered:
		if stim.Type == coach.StimulusZap && stim.Intensity >= coach.MaxIntensity {
			if err := d.store.AutoIgnore(ctx, s.ID, now); err != nil {
				span.RecordError(err)
				return Result{}, fmt.Errorf("auto-ignore at max intensity: %w", err)
			}
			d.log.Info("schedule auto-ignored at max intensity", "schedule_id", s.ID, "trigger_index", index)
		}
	}
	return Result{Detected: true, TriggerIndex: index}, nil
}

// DetectNo runs the refusal track for s at now. A YES answer clears it for good.
func (d *Detector) DetectNo(ctx context.Context, s *coach.Schedule, now time.Time) (Result, error) {
	ctx, span := d.tracer.Start(ctx, "escalation.detect_no", trace.WithAttributes(
		attribute.String("schedule_id", s.ID.String()),
	))
	defer span.End()

	answered, err := d.store.HasActionLog(ctx, s.ID, coach.ResultYes)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("no-mode yes lookup: %w", err)
	}
	if answered {
		return Result{}, nil
	}

	timeout := positive(d.cfg.Int(ctx, config.KeyTimeoutRemind, config.DefaultTimeoutRemind), config.DefaultTimeoutRemind)
	elapsed := elapsedSeconds(s.RunAt, now)
	if elapsed < timeout {
		return Result{}, nil
	}
	index := elapsed / timeout
	span.SetAttributes(attribute.Int("trigger_index", index))

	exists, err := d.store.PunishmentExists(ctx, s.ID, coach.ModeNo, index)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("no-mode lookup: %w", err)
	}
	if exists {
		return Result{Detected: true, TriggerIndex: index}, nil
	}

	out, err := d.deliver(ctx, s, coach.ModeNo, index, NoPunishment(index), now)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	if out == outcomeSendFailed {
		return Result{Detected: false, TriggerIndex: index}, nil
	}
	return Result{Detected: true, TriggerIndex: index}, nil
}

// elapsedSeconds floors now-from to whole seconds; a future from yields a negative value.
func elapsedSeconds(from, now time.Time) int {
	return int(now.Sub(from) / time.Second)
}

func positive(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
