package app

import (
	"gorm.io/gorm"

	coachrepo "github.com/yungbote/oni-coach-backend/internal/data/repos/coach"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

type Repos struct {
	Schedule      coachrepo.ScheduleRepo
	Punishment    coachrepo.PunishmentRepo
	ActionLog     coachrepo.ActionLogRepo
	Commitment    coachrepo.CommitmentRepo
	Configuration coachrepo.ConfigurationRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Schedule:      coachrepo.NewScheduleRepo(db, log),
		Punishment:    coachrepo.NewPunishmentRepo(db, log),
		ActionLog:     coachrepo.NewActionLogRepo(db, log),
		Commitment:    coachrepo.NewCommitmentRepo(db, log),
		Configuration: coachrepo.NewConfigurationRepo(db, log),
	}
}
