package app

import (
	"github.com/yungbote/oni-coach-backend/internal/clients/pavlok"
	"github.com/yungbote/oni-coach-backend/internal/clients/redis"
	"github.com/yungbote/oni-coach-backend/internal/clients/slack"
	"github.com/yungbote/oni-coach-backend/internal/platform/envutil"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

type Clients struct {
	Pavlok pavlok.Client
	Slack  *slack.Notifier
	// ConfigBus is nil when REDIS_ADDR is unset.
	ConfigBus redis.ConfigBus
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	pv, err := pavlok.NewFromEnv(log)
	if err != nil {
		return out, err
	}
	out.Pavlok = pv

	sl, err := slack.NewFromEnv(log)
	if err != nil {
		return out, err
	}
	out.Slack = sl

	if envutil.String("REDIS_ADDR", "") != "" {
		bus, err := redis.NewConfigBus(log)
		if err != nil {
			return out, err
		}
		out.ConfigBus = bus
	} else {
		log.Info("REDIS_ADDR not set; config invalidations stay local")
	}
	return out, nil
}
