package app

import (
	"database/sql"

	httpH "github.com/yungbote/oni-coach-backend/internal/http/handlers"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Schedule   *httpH.ScheduleHandler
	Commitment *httpH.CommitmentHandler
	Config     *httpH.ConfigHandler
	Device     *httpH.DeviceHandler
	Worker     *httpH.WorkerHandler
}

func wireHandlers(log *logger.Logger, sqlDB *sql.DB, clients Clients, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(sqlDB),
		Schedule:   httpH.NewScheduleHandler(services.Schedule),
		Commitment: httpH.NewCommitmentHandler(services.Commitment),
		Config:     httpH.NewConfigHandler(services.Config),
		Device:     httpH.NewDeviceHandler(clients.Pavlok),
		Worker:     httpH.NewWorkerHandler(services.Worker),
	}
}
