package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/oni-coach-backend/internal/clients/redis"
	coachrepo "github.com/yungbote/oni-coach-backend/internal/data/repos/coach"
	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/observability"
	"github.com/yungbote/oni-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

const DefaultTTL = 60 * time.Second

type Source string

const (
	SourceDB      Source = "db"
	SourceEnv     Source = "env"
	SourceDefault Source = "default"
)

// Publisher broadcasts cache invalidations to other processes.
type Publisher interface {
	Publish(ctx context.Context, msg redis.Invalidation) error
}

// Value is a resolved key with the layer it came from.
type Value struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Source Source `json:"source"`
	Entry  *Entry `json:"entry,omitempty"`
}

type cacheEntry struct {
	raw     string
	source  Source
	expires time.Time
}

// Provider resolves runtime config with precedence database > environment >
// caller default, caching each resolution for the TTL.
type Provider struct {
	db      *gorm.DB
	repo    coachrepo.ConfigurationRepo
	catalog *Catalog
	bus     Publisher
	log     *logger.Logger

	ttl    time.Duration
	now    func() time.Time
	origin string

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewProvider(db *gorm.DB, repo coachrepo.ConfigurationRepo, catalog *Catalog, baseLog *logger.Logger) *Provider {
	return &Provider{
		db:      db,
		repo:    repo,
		catalog: catalog,
		log:     baseLog.With("component", "ConfigProvider"),
		ttl:     DefaultTTL,
		now:     time.Now,
		origin:  uuid.NewString(),
		cache:   map[string]cacheEntry{},
	}
}

func (p *Provider) WithBus(bus Publisher) *Provider {
	p.bus = bus
	return p
}

func (p *Provider) WithClock(now func() time.Time) *Provider {
	if now != nil {
		p.now = now
	}
	return p
}

func (p *Provider) WithTTL(ttl time.Duration) *Provider {
	if ttl > 0 {
		p.ttl = ttl
	}
	return p
}

func (p *Provider) Catalog() *Catalog { return p.catalog }

// lookup returns the raw value for key, or source=default when no layer sets it.
func (p *Provider) lookup(ctx context.Context, key string) (string, Source) {
	now := p.now()
	p.mu.Lock()
	if e, ok := p.cache[key]; ok && now.Before(e.expires) {
		p.mu.Unlock()
		return e.raw, e.source
	}
	p.mu.Unlock()

	raw, source := p.resolve(ctx, key)

	p.mu.Lock()
	p.cache[key] = cacheEntry{raw: raw, source: source, expires: now.Add(p.ttl)}
	p.mu.Unlock()
	return raw, source
}

func (p *Provider) resolve(ctx context.Context, key string) (string, Source) {
	if p.repo != nil {
		row, err := p.repo.GetByKey(dbctx.Context{Ctx: ctx}, key)
		if err != nil {
			p.log.Warn("config db lookup failed, falling back to env", "key", key, "error", err)
		} else if row != nil {
			return row.Value, SourceDB
		}
	}
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v, SourceEnv
	}
	return "", SourceDefault
}

func (p *Provider) Int(ctx context.Context, key string, def int) int {
	raw, source := p.lookup(ctx, key)
	if source == SourceDefault {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		// Tolerate integral floats such as "900.0".
		f, ferr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if ferr != nil {
			p.log.Warn("config value is not an int", "key", key, "source", source)
			return def
		}
		return int(f)
	}
	return n
}

func (p *Provider) Float(ctx context.Context, key string, def float64) float64 {
	raw, source := p.lookup(ctx, key)
	if source == SourceDefault {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		p.log.Warn("config value is not a float", "key", key, "source", source)
		return def
	}
	return f
}

func (p *Provider) Bool(ctx context.Context, key string, def bool) bool {
	raw, source := p.lookup(ctx, key)
	if source == SourceDefault {
		return def
	}
	b, ok := parseBool(raw)
	if !ok {
		p.log.Warn("config value is not a bool", "key", key, "source", source)
		return def
	}
	return b
}

func (p *Provider) String(ctx context.Context, key string, def string) string {
	raw, source := p.lookup(ctx, key)
	if source == SourceDefault {
		return def
	}
	return raw
}

// JSON decodes the value for key into a generic structure.
func (p *Provider) JSON(ctx context.Context, key string, def any) any {
	raw, source := p.lookup(ctx, key)
	if source == SourceDefault {
		return def
	}
	var out any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		p.log.Warn("config value is not JSON", "key", key, "source", source)
		return def
	}
	return out
}

// Get resolves key for display, filling in the catalog default when no layer sets it.
func (p *Provider) Get(ctx context.Context, key string) (Value, error) {
	entry, known := p.catalog.Lookup(key)
	raw, source := p.lookup(ctx, key)
	if source == SourceDefault {
		if !known {
			return Value{}, fmt.Errorf("config key %q: %w", key, coach.ErrNotFound)
		}
		raw = entry.Default
	}
	v := Value{Key: key, Value: raw, Source: source}
	if known {
		v.Entry = &entry
	}
	return v, nil
}

func (p *Provider) Invalidate(key string) {
	p.mu.Lock()
	delete(p.cache, key)
	p.mu.Unlock()
}

func (p *Provider) InvalidateAll() {
	p.mu.Lock()
	p.cache = map[string]cacheEntry{}
	p.mu.Unlock()
}

// HandleInvalidation applies an invalidation received from another process.
func (p *Provider) HandleInvalidation(msg redis.Invalidation) {
	if msg.Origin == p.origin {
		return
	}
	if msg.All {
		p.InvalidateAll()
		return
	}
	p.Invalidate(msg.Key)
}

// Set validates value against the catalog, persists it with an audit row and
// drops the cached value here and on every subscribed process.
func (p *Provider) Set(ctx context.Context, key, value, changedBy string, source coach.ChangeSource) (*coach.Configuration, error) {
	entry, ok := p.catalog.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("config key %q: %w", key, coach.ErrNotFound)
	}
	canonical, err := entry.Validate(value)
	if err != nil {
		return nil, err
	}
	if changedBy == "" {
		changedBy = "system"
	}

	row := &coach.Configuration{
		Key:          key,
		Value:        canonical,
		ValueType:    entry.Type,
		Description:  entry.Description,
		DefaultValue: entry.Default,
		MinValue:     entry.Min,
		MaxValue:     entry.Max,
	}
	if len(entry.ValidValues) > 0 {
		raw, err := json.Marshal(entry.ValidValues)
		if err != nil {
			return nil, err
		}
		row.ValidValues = raw
	}

	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		old, err := p.repo.GetByKey(dbc, key)
		if err != nil {
			return err
		}
		if err := p.repo.Save(dbc, row); err != nil {
			return err
		}
		audit := &coach.ConfigAuditLog{
			ConfigKey:    key,
			NewValue:     canonical,
			ChangedBy:    changedBy,
			ChangedAt:    p.now(),
			ChangeSource: source,
		}
		if old != nil {
			prev := old.Value
			audit.OldValue = &prev
		}
		return p.repo.AppendAudit(dbc, audit)
	})
	if err != nil {
		return nil, fmt.Errorf("save config %s: %w", key, err)
	}

	p.Invalidate(key)
	p.broadcast(ctx, redis.Invalidation{Key: key, Origin: p.origin})
	observability.Current().IncConfigWrite(key, string(source))
	p.log.Info("config updated", "key", key, "value", canonical, "changed_by", changedBy, "source", source)
	return row, nil
}

// Reset restores the catalog default for key.
func (p *Provider) Reset(ctx context.Context, key, changedBy string) (*coach.Configuration, error) {
	entry, ok := p.catalog.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("config key %q: %w", key, coach.ErrNotFound)
	}
	return p.Set(ctx, key, entry.Default, changedBy, coach.SourceReset)
}

// History returns the most recent audit rows for key.
func (p *Provider) History(ctx context.Context, key string, limit int) ([]*coach.ConfigAuditLog, error) {
	return p.repo.ListAudit(dbctx.Context{Ctx: ctx}, key, limit)
}

// SeedCatalog inserts catalog defaults for keys missing from the database.
// Seeded keys shadow environment overrides.
func (p *Provider) SeedCatalog(ctx context.Context) (int, error) {
	inserted := 0
	for _, e := range p.catalog.Entries() {
		ok, err := p.repo.InsertIfAbsent(dbctx.Context{Ctx: ctx}, &coach.Configuration{
			Key:          e.Key,
			Value:        e.Default,
			ValueType:    e.Type,
			Description:  e.Description,
			DefaultValue: e.Default,
			MinValue:     e.Min,
			MaxValue:     e.Max,
		})
		if err != nil {
			return inserted, fmt.Errorf("seed %s: %w", e.Key, err)
		}
		if ok {
			inserted++
		}
	}
	if inserted > 0 {
		p.InvalidateAll()
		p.broadcast(ctx, redis.Invalidation{All: true, Origin: p.origin})
	}
	return inserted, nil
}

func (p *Provider) broadcast(ctx context.Context, msg redis.Invalidation) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(ctx, msg); err != nil {
		p.log.Warn("config invalidation publish failed", "key", msg.Key, "error", err)
	}
}
