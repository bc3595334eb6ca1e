package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/jobs/worker"
)

// Memory is an in-process worker.Store with the same uniqueness rules as the
// SQL schema. Failures can be injected per method name with Fail.
type Memory struct {
	mu          sync.Mutex
	schedules   map[uuid.UUID]*coach.Schedule
	punishments []*coach.Punishment
	actionLogs  []*coach.ActionLog
	commitments []*coach.Commitment
	failures    map[string]error
}

func NewMemory() *Memory {
	return &Memory{
		schedules: map[uuid.UUID]*coach.Schedule{},
		failures:  map[string]error{},
	}
}

var _ worker.Store = (*Memory)(nil)

// Fail makes every later call to op return err until cleared with a nil err.
func (m *Memory) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

func (m *Memory) failure(op string) error {
	return m.failures[op]
}

// AddSchedule stores a copy of s, bypassing uniqueness checks.
func (m *Memory) AddSchedule(s *coach.Schedule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
		s.ID = cp.ID
	}
	m.schedules[cp.ID] = &cp
}

func (m *Memory) AddCommitment(c *coach.Commitment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.commitments = append(m.commitments, &cp)
}

func (m *Memory) AddActionLog(scheduleID uuid.UUID, result coach.ActionResult, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actionLogs = append(m.actionLogs, &coach.ActionLog{ID: uuid.New(), ScheduleID: scheduleID, Result: result, CreatedAt: at})
}

func (m *Memory) AddPunishment(p coach.Punishment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.punishments = append(m.punishments, &p)
}

// Schedule returns a copy of the stored schedule, or nil.
func (m *Memory) Schedule(id uuid.UUID) *coach.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

func (m *Memory) Schedules() []*coach.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*coach.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunAt.Before(out[j].RunAt) })
	return out
}

func (m *Memory) Punishments(scheduleID uuid.UUID) []coach.Punishment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []coach.Punishment
	for _, p := range m.punishments {
		if p.ScheduleID == scheduleID {
			out = append(out, *p)
		}
	}
	return out
}

func (m *Memory) ActionLogs(scheduleID uuid.UUID, result coach.ActionResult) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.actionLogs {
		if a.ScheduleID == scheduleID && a.Result == result {
			n++
		}
	}
	return n
}

// InTx snapshots the store and restores it when fn fails.
func (m *Memory) InTx(ctx context.Context, fn func(tx worker.Store) error) error {
	m.mu.Lock()
	if err := m.failure("InTx"); err != nil {
		m.mu.Unlock()
		return err
	}
	snap := m.snapshot()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restore(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

type memorySnapshot struct {
	schedules   map[uuid.UUID]coach.Schedule
	punishments []coach.Punishment
	actionLogs  []coach.ActionLog
}

func (m *Memory) snapshot() memorySnapshot {
	snap := memorySnapshot{schedules: make(map[uuid.UUID]coach.Schedule, len(m.schedules))}
	for id, s := range m.schedules {
		snap.schedules[id] = *s
	}
	for _, p := range m.punishments {
		snap.punishments = append(snap.punishments, *p)
	}
	for _, a := range m.actionLogs {
		snap.actionLogs = append(snap.actionLogs, *a)
	}
	return snap
}

func (m *Memory) restore(snap memorySnapshot) {
	m.schedules = make(map[uuid.UUID]*coach.Schedule, len(snap.schedules))
	for id, s := range snap.schedules {
		s := s
		m.schedules[id] = &s
	}
	m.punishments = m.punishments[:0]
	for _, p := range snap.punishments {
		p := p
		m.punishments = append(m.punishments, &p)
	}
	m.actionLogs = m.actionLogs[:0]
	for _, a := range snap.actionLogs {
		a := a
		m.actionLogs = append(m.actionLogs, &a)
	}
}

func (m *Memory) PunishmentExists(ctx context.Context, scheduleID uuid.UUID, mode coach.PunishmentMode, count int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("PunishmentExists"); err != nil {
		return false, err
	}
	for _, p := range m.punishments {
		if p.ScheduleID == scheduleID && p.Mode == mode && p.Count == count {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) HasActionLog(ctx context.Context, scheduleID uuid.UUID, result coach.ActionResult) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("HasActionLog"); err != nil {
		return false, err
	}
	for _, a := range m.actionLogs {
		if a.ScheduleID == scheduleID && a.Result == result {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) CountShockPunishments(ctx context.Context, ownerUserID string, from, to time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CountShockPunishments"); err != nil {
		return 0, err
	}
	n := 0
	for _, p := range m.punishments {
		s, ok := m.schedules[p.ScheduleID]
		if !ok || s.OwnerUserID != ownerUserID || !p.Shock() {
			continue
		}
		if !p.CreatedAt.Before(from) && p.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) RecordPunishment(ctx context.Context, p *coach.Punishment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("RecordPunishment"); err != nil {
		return false, err
	}
	for _, e := range m.punishments {
		if e.ScheduleID == p.ScheduleID && e.Mode == p.Mode && e.Count == p.Count {
			return false, nil
		}
	}
	cp := *p
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	m.punishments = append(m.punishments, &cp)
	return true, nil
}

func (m *Memory) AutoIgnore(ctx context.Context, scheduleID uuid.UUID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("AutoIgnore"); err != nil {
		return err
	}
	s, ok := m.schedules[scheduleID]
	if !ok {
		return fmt.Errorf("schedule %s: %w", scheduleID, coach.ErrNotFound)
	}
	if s.State != coach.StateCanceled {
		s.State = coach.StateCanceled
		s.UpdatedAt = now
	}
	for _, a := range m.actionLogs {
		if a.ScheduleID == scheduleID && a.Result == coach.ResultAutoIgnore {
			return nil
		}
	}
	m.actionLogs = append(m.actionLogs, &coach.ActionLog{
		ID:         uuid.New(),
		ScheduleID: scheduleID,
		Result:     coach.ResultAutoIgnore,
		CreatedAt:  now,
	})
	return nil
}

func (m *Memory) AnyActive(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("AnyActive"); err != nil {
		return false, err
	}
	for _, s := range m.schedules {
		if s.State.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) LatestActiveCommitmentOwner(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("LatestActiveCommitmentOwner"); err != nil {
		return "", err
	}
	var latest *coach.Commitment
	for _, c := range m.commitments {
		if !c.Active {
			continue
		}
		if latest == nil || c.UpdatedAt.After(latest.UpdatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return "", nil
	}
	return latest.OwnerUserID, nil
}

func (m *Memory) HasPlanOn(ctx context.Context, ownerUserID string, runDate string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("HasPlanOn"); err != nil {
		return false, err
	}
	for _, s := range m.schedules {
		if s.OwnerUserID == ownerUserID && s.EventType == coach.EventPlan && s.RunDate == runDate {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) CreateSchedule(ctx context.Context, s *coach.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CreateSchedule"); err != nil {
		return err
	}
	if s.EventType == coach.EventPlan && s.State.Active() {
		for _, e := range m.schedules {
			if e.EventType == coach.EventPlan && e.State.Active() && e.OwnerUserID == s.OwnerUserID && e.RunDate == s.RunDate {
				return fmt.Errorf("open plan exists for %s on %s: %w", s.OwnerUserID, s.RunDate, coach.ErrConflict)
			}
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	m.schedules[cp.ID] = &cp
	return nil
}

func (m *Memory) ListDue(ctx context.Context, now time.Time) ([]*coach.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ListDue"); err != nil {
		return nil, err
	}
	var out []*coach.Schedule
	for _, s := range m.schedules {
		if s.State == coach.StatePending && !s.RunAt.After(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunAt.Before(out[j].RunAt) })
	return out, nil
}

func (m *Memory) ListMonitored(ctx context.Context, since, now time.Time) ([]*coach.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ListMonitored"); err != nil {
		return nil, err
	}
	answered := map[uuid.UUID]bool{}
	for _, a := range m.actionLogs {
		if a.Result == coach.ResultYes {
			answered[a.ScheduleID] = true
		}
	}
	var out []*coach.Schedule
	for _, s := range m.schedules {
		if answered[s.ID] || s.RunAt.Before(since) || s.RunAt.After(now) {
			continue
		}
		waiting := (s.EventType == coach.EventPlan && s.State == coach.StateProcessing) ||
			(s.EventType == coach.EventRemind && (s.State == coach.StateProcessing || s.State == coach.StateDone))
		if waiting {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunAt.Before(out[j].RunAt) })
	return out, nil
}

func (m *Memory) ClaimSchedule(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return m.TransitionSchedule(ctx, id, coach.StatePending, coach.StateProcessing, now)
}

func (m *Memory) TransitionSchedule(ctx context.Context, id uuid.UUID, from, to coach.ScheduleState, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("TransitionSchedule"); err != nil {
		return false, err
	}
	s, ok := m.schedules[id]
	if !ok || s.State != from {
		return false, nil
	}
	s.State = to
	s.UpdatedAt = now
	return true, nil
}

func (m *Memory) RecordScheduleFailure(ctx context.Context, id uuid.UUID, f worker.Failure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("RecordScheduleFailure"); err != nil {
		return err
	}
	s, ok := m.schedules[id]
	if !ok {
		return fmt.Errorf("schedule %s: %w", id, coach.ErrNotFound)
	}
	s.RetryCount = f.RetryCount
	s.State = f.State
	s.UpdatedAt = f.Now
	if !f.RunAt.IsZero() {
		s.SetRunAt(f.RunAt)
	}
	return nil
}

func (m *Memory) SetThreadTS(ctx context.Context, id uuid.UUID, ts string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("SetThreadTS"); err != nil {
		return err
	}
	if s, ok := m.schedules[id]; ok {
		s.ThreadTS = &ts
	}
	return nil
}
