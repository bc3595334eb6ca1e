package config

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/oni-coach-backend/internal/clients/redis"
	coachrepo "github.com/yungbote/oni-coach-backend/internal/data/repos/coach"
	"github.com/yungbote/oni-coach-backend/internal/data/repos/testutil"
	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/platform/dbctx"
)

type recordingBus struct {
	mu   sync.Mutex
	msgs []redis.Invalidation
	err  error
}

func (b *recordingBus) Publish(ctx context.Context, msg redis.Invalidation) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
	return b.err
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestProvider(t *testing.T) (*Provider, coachrepo.ConfigurationRepo, *clock) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	cat, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog: %v", err)
	}
	repo := coachrepo.NewConfigurationRepo(db, log)
	clk := &clock{t: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	return NewProvider(db, repo, cat, log).WithClock(clk.now), repo, clk
}

func TestProviderPrecedence(t *testing.T) {
	p, _, _ := newTestProvider(t)
	ctx := context.Background()

	if got := p.Int(ctx, KeyIgnoreInterval, DefaultIgnoreInterval); got != DefaultIgnoreInterval {
		t.Fatalf("default: want=%d got=%d", DefaultIgnoreInterval, got)
	}

	t.Setenv(KeyIgnoreInterval, "120")
	p.InvalidateAll()
	if got := p.Int(ctx, KeyIgnoreInterval, DefaultIgnoreInterval); got != 120 {
		t.Fatalf("env: want=120 got=%d", got)
	}

	if _, err := p.Set(ctx, KeyIgnoreInterval, "300", "U1", coach.SourceAPI); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := p.Int(ctx, KeyIgnoreInterval, DefaultIgnoreInterval); got != 300 {
		t.Fatalf("db: want=300 got=%d", got)
	}
	v, err := p.Get(ctx, KeyIgnoreInterval)
	if err != nil || v.Source != SourceDB || v.Value != "300" {
		t.Fatalf("Get: want=300/db got=%+v err=%v", v, err)
	}
}

func TestProviderTypedGetters(t *testing.T) {
	p, _, _ := newTestProvider(t)
	ctx := context.Background()

	t.Setenv("SOME_FLOAT", "1.5")
	t.Setenv("SOME_BOOL", "yes")
	t.Setenv("SOME_JSON", `{"a":1}`)
	t.Setenv("SOME_BAD_INT", "many")
	t.Setenv("SOME_FLOAT_INT", "900.0")

	if got := p.Float(ctx, "SOME_FLOAT", 0); got != 1.5 {
		t.Fatalf("Float: want=1.5 got=%v", got)
	}
	if got := p.Bool(ctx, "SOME_BOOL", false); !got {
		t.Fatalf("Bool: want=true got=false")
	}
	if got := p.String(ctx, "MISSING_KEY", "fallback"); got != "fallback" {
		t.Fatalf("String: want=fallback got=%q", got)
	}
	m, ok := p.JSON(ctx, "SOME_JSON", nil).(map[string]any)
	if !ok || m["a"] != float64(1) {
		t.Fatalf("JSON: got=%v", m)
	}
	if got := p.Int(ctx, "SOME_BAD_INT", 7); got != 7 {
		t.Fatalf("unparseable int: want=7 got=%d", got)
	}
	if got := p.Int(ctx, "SOME_FLOAT_INT", 0); got != 900 {
		t.Fatalf("integral float: want=900 got=%d", got)
	}
}

func TestProviderCacheTTL(t *testing.T) {
	p, repo, clk := newTestProvider(t)
	ctx := context.Background()

	if got := p.Int(ctx, KeyRetryDelay, 5); got != 5 {
		t.Fatalf("initial: want=5 got=%d", got)
	}
	// Written behind the provider's back, so only expiry or invalidation reveals it.
	if err := repo.Save(dbctx.Context{Ctx: ctx}, &coach.Configuration{Key: KeyRetryDelay, Value: "9", ValueType: coach.ValueInt}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := p.Int(ctx, KeyRetryDelay, 5); got != 5 {
		t.Fatalf("cached: want=5 got=%d", got)
	}
	clk.advance(DefaultTTL + time.Second)
	if got := p.Int(ctx, KeyRetryDelay, 5); got != 9 {
		t.Fatalf("after ttl: want=9 got=%d", got)
	}

	if err := repo.Save(dbctx.Context{Ctx: ctx}, &coach.Configuration{Key: KeyRetryDelay, Value: "11", ValueType: coach.ValueInt}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p.HandleInvalidation(redis.Invalidation{Key: KeyRetryDelay, Origin: "other-process"})
	if got := p.Int(ctx, KeyRetryDelay, 5); got != 11 {
		t.Fatalf("after invalidation: want=11 got=%d", got)
	}
}

func TestProviderSetValidatesAndAudits(t *testing.T) {
	p, _, _ := newTestProvider(t)
	ctx := context.Background()
	bus := &recordingBus{err: errors.New("redis down")}
	p.WithBus(bus)

	if _, err := p.Set(ctx, KeyIgnoreInterval, "10", "U1", coach.SourceAPI); !errors.Is(err, coach.ErrInvalidArgument) {
		t.Fatalf("below min: want ErrInvalidArgument got=%v", err)
	}
	if _, err := p.Set(ctx, "NOT_A_KEY", "1", "U1", coach.SourceAPI); !errors.Is(err, coach.ErrNotFound) {
		t.Fatalf("unknown key: want ErrNotFound got=%v", err)
	}

	if _, err := p.Set(ctx, KeySystemPaused, "on", "U1", coach.SourceSlackCommand); err != nil {
		t.Fatalf("Set: %v", err)
	}
	row, err := p.Set(ctx, KeySystemPaused, "off", "U2", coach.SourceSlackCommand)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if row.Version != 2 || row.Value != "false" {
		t.Fatalf("row: want=v2/false got=v%d/%s", row.Version, row.Value)
	}
	if p.Bool(ctx, KeySystemPaused, true) {
		t.Fatalf("Bool after Set: want=false")
	}

	hist, err := p.History(ctx, KeySystemPaused, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("audit rows: want=2 got=%d", len(hist))
	}
	var sawOld bool
	for _, h := range hist {
		if h.OldValue != nil && *h.OldValue == "true" && h.NewValue == "false" && h.ChangedBy == "U2" {
			sawOld = true
		}
	}
	if !sawOld {
		t.Fatalf("audit: missing true->false row by U2")
	}

	if len(bus.msgs) != 2 || bus.msgs[0].Key != KeySystemPaused {
		t.Fatalf("bus: want 2 publishes for %s got=%+v", KeySystemPaused, bus.msgs)
	}
	// Own messages echo back through the subscription and are ignored.
	p.HandleInvalidation(bus.msgs[0])
}

func TestProviderResetAndSeed(t *testing.T) {
	p, repo, _ := newTestProvider(t)
	ctx := context.Background()

	if _, err := p.Set(ctx, KeyTimeoutRemind, "1200", "U1", coach.SourceAPI); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := p.Reset(ctx, KeyTimeoutRemind, "U1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := p.Int(ctx, KeyTimeoutRemind, 0); got != DefaultTimeoutRemind {
		t.Fatalf("after reset: want=%d got=%d", DefaultTimeoutRemind, got)
	}

	n, err := p.SeedCatalog(ctx)
	if err != nil {
		t.Fatalf("SeedCatalog: %v", err)
	}
	if want := len(p.Catalog().Entries()) - 1; n != want {
		t.Fatalf("seeded: want=%d got=%d", want, n)
	}
	if n, err := p.SeedCatalog(ctx); err != nil || n != 0 {
		t.Fatalf("second seed: want=0 got=%d err=%v", n, err)
	}
	rows, err := repo.List(dbctx.Context{Ctx: ctx})
	if err != nil || len(rows) != len(p.Catalog().Entries()) {
		t.Fatalf("List: want=%d got=%d err=%v", len(p.Catalog().Entries()), len(rows), err)
	}
}
