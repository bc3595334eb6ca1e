package app

import (
	"strings"

	"github.com/yungbote/oni-coach-backend/internal/platform/envutil"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

type Config struct {
	Port           string
	DBDriver       string
	SQLitePath     string
	InternalSecret string
	SeedCatalog    bool
	RunWorker      bool
	Environment    string
	Version        string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:           envutil.String("PORT", "8080"),
		DBDriver:       strings.ToLower(envutil.String("DB_DRIVER", "postgres")),
		SQLitePath:     envutil.String("SQLITE_PATH", "oni.db"),
		InternalSecret: envutil.String("ONI_INTERNAL_SECRET", ""),
		SeedCatalog:    envutil.Bool("CONFIG_SEED_CATALOG", false),
		RunWorker:      envutil.Bool("WORKER_ENABLED", true),
		Environment:    envutil.String("APP_ENV", "development"),
		Version:        envutil.String("APP_VERSION", ""),
	}
	if cfg.InternalSecret == "" {
		log.Warn("ONI_INTERNAL_SECRET is empty; /internal routes will reject every request")
	}
	return cfg
}
