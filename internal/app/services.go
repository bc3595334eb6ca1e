package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/oni-coach-backend/internal/config"
	"github.com/yungbote/oni-coach-backend/internal/data/store"
	"github.com/yungbote/oni-coach-backend/internal/escalation"
	"github.com/yungbote/oni-coach-backend/internal/jobs/worker"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
	"github.com/yungbote/oni-coach-backend/internal/services"
)

type Services struct {
	Config     *config.Provider
	Schedule   services.ScheduleService
	Commitment services.CommitmentService
	Detector   *escalation.Detector
	Worker     *worker.Worker
}

func wireServices(ctx context.Context, db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	catalog, err := config.DefaultCatalog()
	if err != nil {
		return Services{}, fmt.Errorf("load config catalog: %w", err)
	}
	provider := config.NewProvider(db, repos.Configuration, catalog, log)
	if clients.ConfigBus != nil {
		provider.WithBus(clients.ConfigBus)
		if err := clients.ConfigBus.StartForwarder(ctx, provider.HandleInvalidation); err != nil {
			return Services{}, fmt.Errorf("config bus subscribe: %w", err)
		}
	}
	if cfg.SeedCatalog {
		n, err := provider.SeedCatalog(ctx)
		if err != nil {
			return Services{}, fmt.Errorf("seed config catalog: %w", err)
		}
		log.Info("config catalog seeded", "inserted", n)
	}

	st := store.New(db, log)
	detector := escalation.NewDetector(st, clients.Pavlok, provider, log)
	w := worker.NewWorker(st, clients.Slack, detector, provider, log)

	return Services{
		Config:     provider,
		Schedule:   services.NewScheduleService(db, log, repos.Schedule, repos.Punishment, repos.ActionLog, provider),
		Commitment: services.NewCommitmentService(db, log, repos.Commitment),
		Detector:   detector,
		Worker:     w,
	}, nil
}
