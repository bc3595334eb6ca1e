package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

// Invalidation tells every process to drop cached config. All=true clears the whole cache.
type Invalidation struct {
	Key    string `json:"key,omitempty"`
	All    bool   `json:"all,omitempty"`
	Origin string `json:"origin,omitempty"`
}

type ConfigBus interface {
	Publish(ctx context.Context, msg Invalidation) error
	StartForwarder(ctx context.Context, onMsg func(m Invalidation)) error
	Close() error
}

type configBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewConfigBus(log *logger.Logger) (ConfigBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_CONFIG_CHANNEL"))
	if ch == "" {
		ch = "oni:config"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &configBus{
		log:     log.With("service", "RedisConfigBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *configBus) Publish(ctx context.Context, msg Invalidation) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis config bus not initialized")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *configBus) StartForwarder(ctx context.Context, onMsg func(m Invalidation)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis config bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				msg, err := decodeInvalidation(m.Payload)
				if err != nil {
					b.log.Warn("bad redis config payload", "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()

	return nil
}

func (b *configBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func decodeInvalidation(payload string) (Invalidation, error) {
	var msg Invalidation
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return Invalidation{}, err
	}
	if msg.Key == "" && !msg.All {
		return Invalidation{}, fmt.Errorf("invalidation without key")
	}
	return msg, nil
}
