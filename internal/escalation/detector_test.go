package escalation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/oni-coach-backend/internal/config"
	"github.com/yungbote/oni-coach-backend/internal/data/store"
	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/escalation"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

type fakeSender struct {
	calls []coach.Stimulus
	err   error
}

func (f *fakeSender) Send(ctx context.Context, s coach.Stimulus) error {
	f.calls = append(f.calls, s)
	return f.err
}

type fakeConfig map[string]int

func (f fakeConfig) Int(ctx context.Context, key string, def int) int {
	if v, ok := f[key]; ok {
		return v
	}
	return def
}

var base = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T, cfg fakeConfig) (*store.Memory, *fakeSender, *escalation.Detector, *coach.Schedule) {
	t.Helper()
	m := store.NewMemory()
	sender := &fakeSender{}
	d := escalation.NewDetector(m, sender, cfg, logger.Nop())
	s := coach.NewSchedule("U1", coach.EventRemind, base)
	s.State = coach.StateProcessing
	m.AddSchedule(s)
	return m, sender, d, s
}

func TestDetectIgnoreScenarios(t *testing.T) {
	cases := []struct {
		name      string
		elapsed   time.Duration
		want      escalation.Result
		stimulus  *coach.Stimulus
		rows      int
		wantState coach.ScheduleState
	}{
		{"before interval", 899 * time.Second, escalation.Result{}, nil, 0, coach.StateProcessing},
		{"first interval", 900 * time.Second, escalation.Result{Detected: true, TriggerIndex: 1}, &coach.Stimulus{Type: coach.StimulusVibe, Intensity: 100}, 1, coach.StateProcessing},
		{"second interval", 1800 * time.Second, escalation.Result{Detected: true, TriggerIndex: 2}, &coach.Stimulus{Type: coach.StimulusZap, Intensity: 35}, 1, coach.StateProcessing},
		{"max intensity", 8100 * time.Second, escalation.Result{Detected: true, TriggerIndex: 9}, &coach.Stimulus{Type: coach.StimulusZap, Intensity: 100}, 1, coach.StateCanceled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, sender, d, s := setup(t, fakeConfig{config.KeyIgnoreMaxRetry: 10})
			got, err := d.DetectIgnore(context.Background(), s, base.Add(tc.elapsed))
			if err != nil {
				t.Fatalf("DetectIgnore: %v", err)
			}
			if got != tc.want {
				t.Fatalf("result: want=%+v got=%+v", tc.want, got)
			}
			if tc.stimulus == nil && len(sender.calls) != 0 {
				t.Fatalf("sender: want no calls got=%v", sender.calls)
			}
			if tc.stimulus != nil && (len(sender.calls) != 1 || sender.calls[0] != *tc.stimulus) {
				t.Fatalf("sender: want=[%+v] got=%v", *tc.stimulus, sender.calls)
			}
			if rows := m.Punishments(s.ID); len(rows) != tc.rows {
				t.Fatalf("punishments: want=%d got=%d", tc.rows, len(rows))
			}
			if st := m.Schedule(s.ID).State; st != tc.wantState {
				t.Fatalf("state: want=%q got=%q", tc.wantState, st)
			}
			wantLogs := 0
			if tc.wantState == coach.StateCanceled {
				wantLogs = 1
			}
			if n := m.ActionLogs(s.ID, coach.ResultAutoIgnore); n != wantLogs {
				t.Fatalf("AUTO_IGNORE logs: want=%d got=%d", wantLogs, n)
			}
		})
	}
}

func TestDetectIgnoreSenderFailureIsRetryable(t *testing.T) {
	m, sender, d, s := setup(t, fakeConfig{})
	sender.err = errors.New("pavlok unavailable")

	got, err := d.DetectIgnore(context.Background(), s, base.Add(900*time.Second))
	if err != nil {
		t.Fatalf("DetectIgnore: %v", err)
	}
	if got != (escalation.Result{Detected: false, TriggerIndex: 1}) {
		t.Fatalf("result: want={false 1} got=%+v", got)
	}
	if rows := m.Punishments(s.ID); len(rows) != 0 {
		t.Fatalf("punishments: want=0 got=%d", len(rows))
	}

	sender.err = nil
	got, err = d.DetectIgnore(context.Background(), s, base.Add(901*time.Second))
	if err != nil || !got.Detected || got.TriggerIndex != 1 {
		t.Fatalf("retry: want={true 1} got=%+v err=%v", got, err)
	}
	if rows := m.Punishments(s.ID); len(rows) != 1 {
		t.Fatalf("punishments after retry: want=1 got=%d", len(rows))
	}
}

func TestDetectorsAreIdempotent(t *testing.T) {
	m, sender, d, s := setup(t, fakeConfig{})
	ctx := context.Background()
	now := base.Add(1800 * time.Second)

	for i := 0; i < 2; i++ {
		if got, err := d.DetectIgnore(ctx, s, now); err != nil || got != (escalation.Result{Detected: true, TriggerIndex: 2}) {
			t.Fatalf("DetectIgnore #%d: got=%+v err=%v", i, got, err)
		}
		if got, err := d.DetectNo(ctx, s, now); err != nil || got != (escalation.Result{Detected: true, TriggerIndex: 3}) {
			t.Fatalf("DetectNo #%d: got=%+v err=%v", i, got, err)
		}
	}
	if len(sender.calls) != 2 {
		t.Fatalf("sender: want=2 calls got=%d", len(sender.calls))
	}
	if rows := m.Punishments(s.ID); len(rows) != 2 {
		t.Fatalf("punishments: want=2 got=%d", len(rows))
	}
}

func TestDailyCapIsSharedAcrossTracks(t *testing.T) {
	m, sender, d, s := setup(t, fakeConfig{config.KeyLimitDayPavlokCounts: 1})
	ctx := context.Background()

	earlier := coach.NewSchedule("U1", coach.EventRemind, base.Add(-time.Hour))
	m.AddSchedule(earlier)
	m.AddPunishment(coach.Punishment{ScheduleID: earlier.ID, Mode: coach.ModeNo, Count: 1, CreatedAt: base})

	got, err := d.DetectIgnore(ctx, s, base.Add(1800*time.Second))
	if err != nil {
		t.Fatalf("DetectIgnore: %v", err)
	}
	if got != (escalation.Result{Detected: true, TriggerIndex: 2}) {
		t.Fatalf("DetectIgnore: want={true 2} got=%+v", got)
	}
	got, err = d.DetectNo(ctx, s, base.Add(600*time.Second))
	if err != nil {
		t.Fatalf("DetectNo: %v", err)
	}
	if got != (escalation.Result{Detected: true, TriggerIndex: 1}) {
		t.Fatalf("DetectNo: want={true 1} got=%+v", got)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("sender: want no calls got=%v", sender.calls)
	}
	if rows := m.Punishments(s.ID); len(rows) != 0 {
		t.Fatalf("punishments: want=0 got=%d", len(rows))
	}

	// The vibe nudge is not shock-graduated and ignores the cap.
	got, err = d.DetectIgnore(ctx, s, base.Add(900*time.Second))
	if err != nil || !got.Detected || len(sender.calls) != 1 || sender.calls[0].Type != coach.StimulusVibe {
		t.Fatalf("vibe under cap: got=%+v calls=%v err=%v", got, sender.calls, err)
	}
}

func TestDailyCapResetsNextDay(t *testing.T) {
	m, sender, d, s := setup(t, fakeConfig{config.KeyLimitDayPavlokCounts: 1})
	m.AddPunishment(coach.Punishment{ScheduleID: s.ID, Mode: coach.ModeNo, Count: 1, CreatedAt: base.Add(-24 * time.Hour)})

	got, err := d.DetectNo(context.Background(), s, base.Add(1200*time.Second))
	if err != nil || got != (escalation.Result{Detected: true, TriggerIndex: 2}) {
		t.Fatalf("DetectNo: got=%+v err=%v", got, err)
	}
	if len(sender.calls) != 1 || sender.calls[0] != (coach.Stimulus{Type: coach.StimulusZap, Intensity: 55}) {
		t.Fatalf("sender: want=[zap/55] got=%v", sender.calls)
	}
}

func TestYesClearsNoMode(t *testing.T) {
	m, sender, d, s := setup(t, fakeConfig{})
	m.AddActionLog(s.ID, coach.ResultYes, base)

	for _, elapsed := range []time.Duration{600 * time.Second, 6 * time.Hour, 72 * time.Hour} {
		got, err := d.DetectNo(context.Background(), s, base.Add(elapsed))
		if err != nil || got != (escalation.Result{}) {
			t.Fatalf("DetectNo(%s): want not detected got=%+v err=%v", elapsed, got, err)
		}
	}
	if len(sender.calls) != 0 {
		t.Fatalf("sender: want no calls got=%v", sender.calls)
	}
}

func TestAutoCancelOnMaxRetry(t *testing.T) {
	m, sender, d, s := setup(t, fakeConfig{config.KeyIgnoreMaxRetry: 2})
	ctx := context.Background()

	for index := 1; index <= 2; index++ {
		got, err := d.DetectIgnore(ctx, s, base.Add(time.Duration(index)*900*time.Second))
		if err != nil || got != (escalation.Result{Detected: true, TriggerIndex: index}) {
			t.Fatalf("DetectIgnore(%d): got=%+v err=%v", index, got, err)
		}
		if st := m.Schedule(s.ID).State; st != coach.StateProcessing {
			t.Fatalf("state after %d: want processing got=%q", index, st)
		}
	}

	for i := 0; i < 3; i++ {
		got, err := d.DetectIgnore(ctx, s, base.Add(2700*time.Second+time.Duration(i)*time.Second))
		if err != nil || got != (escalation.Result{Detected: true, TriggerIndex: 3}) {
			t.Fatalf("DetectIgnore(3) #%d: got=%+v err=%v", i, got, err)
		}
	}
	if st := m.Schedule(s.ID).State; st != coach.StateCanceled {
		t.Fatalf("state: want canceled got=%q", st)
	}
	if n := m.ActionLogs(s.ID, coach.ResultAutoIgnore); n != 1 {
		t.Fatalf("AUTO_IGNORE logs: want=1 got=%d", n)
	}
	if len(sender.calls) != 2 {
		t.Fatalf("sender: want=2 calls got=%d", len(sender.calls))
	}
}

func TestDetectFutureScheduleIsQuiet(t *testing.T) {
	_, sender, d, s := setup(t, fakeConfig{})
	now := base.Add(-time.Hour)
	if got, err := d.DetectIgnore(context.Background(), s, now); err != nil || got.Detected {
		t.Fatalf("DetectIgnore: got=%+v err=%v", got, err)
	}
	if got, err := d.DetectNo(context.Background(), s, now); err != nil || got.Detected {
		t.Fatalf("DetectNo: got=%+v err=%v", got, err)
	}
	if len(sender.calls) != 0 {
		t.Fatalf("sender: want no calls got=%v", sender.calls)
	}
}

func TestNonPositiveConfigFallsBack(t *testing.T) {
	_, sender, d, s := setup(t, fakeConfig{config.KeyIgnoreInterval: 0, config.KeyTimeoutRemind: -5})
	got, err := d.DetectIgnore(context.Background(), s, base.Add(899*time.Second))
	if err != nil || got.Detected {
		t.Fatalf("DetectIgnore with interval=0: got=%+v err=%v", got, err)
	}
	got, err = d.DetectNo(context.Background(), s, base.Add(600*time.Second))
	if err != nil || got != (escalation.Result{Detected: true, TriggerIndex: 1}) {
		t.Fatalf("DetectNo with timeout=-5: got=%+v err=%v", got, err)
	}
	if len(sender.calls) != 1 {
		t.Fatalf("sender: want=1 call got=%d", len(sender.calls))
	}
}

func TestStoreErrorsPropagate(t *testing.T) {
	m, sender, d, s := setup(t, fakeConfig{})
	boom := errors.New("db down")
	m.Fail("RecordPunishment", boom)

	_, err := d.DetectIgnore(context.Background(), s, base.Add(900*time.Second))
	if !errors.Is(err, boom) {
		t.Fatalf("DetectIgnore: want db down got=%v", err)
	}
	if len(sender.calls) != 1 {
		t.Fatalf("sender: want=1 call got=%d", len(sender.calls))
	}
}
