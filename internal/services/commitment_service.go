package services

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	coachrepo "github.com/yungbote/oni-coach-backend/internal/data/repos/coach"
	types "github.com/yungbote/oni-coach-backend/internal/domain"
	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

type CommitmentInput struct {
	Task string `json:"task"`
	Time string `json:"time"`
}

type CommitmentService interface {
	List(dbc dbctx.Context, ownerUserID string) ([]*types.Commitment, error)
	// Replace deactivates the owner's active commitments and stores the new set.
	Replace(dbc dbctx.Context, ownerUserID string, in []CommitmentInput) ([]*types.Commitment, error)
}

type commitmentService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo coachrepo.CommitmentRepo
}

func NewCommitmentService(db *gorm.DB, baseLog *logger.Logger, repo coachrepo.CommitmentRepo) CommitmentService {
	return &commitmentService{
		db:   db,
		log:  baseLog.With("service", "CommitmentService"),
		repo: repo,
	}
}

func (s *commitmentService) List(dbc dbctx.Context, ownerUserID string) ([]*types.Commitment, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, fmt.Errorf("%w: owner_user_id required", coach.ErrInvalidArgument)
	}
	return s.repo.ListActiveByOwner(dbc, ownerUserID)
}

func (s *commitmentService) Replace(dbc dbctx.Context, ownerUserID string, in []CommitmentInput) ([]*types.Commitment, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, fmt.Errorf("%w: owner_user_id required", coach.ErrInvalidArgument)
	}
	rows := make([]*types.Commitment, 0, len(in))
	for i, c := range in {
		task := strings.TrimSpace(c.Task)
		if task == "" {
			return nil, fmt.Errorf("%w: commitments[%d].task required", coach.ErrInvalidArgument, i)
		}
		clock, _, err := coach.ParseClock(strings.TrimSpace(c.Time))
		if err != nil {
			return nil, fmt.Errorf("commitments[%d]: %w", i, err)
		}
		rows = append(rows, &types.Commitment{OwnerUserID: ownerUserID, Task: task, Time: clock, Active: true})
	}

	var out []*types.Commitment
	run := func(tx dbctx.Context) error {
		n, err := s.repo.DeactivateByOwner(tx, ownerUserID)
		if err != nil {
			return err
		}
		created, err := s.repo.Create(tx, rows)
		if err != nil {
			return err
		}
		out = created
		s.log.Info("commitments replaced", "owner_user_id", ownerUserID, "deactivated", n, "created", len(created))
		return nil
	}
	if dbc.Tx != nil {
		if err := run(dbc); err != nil {
			return nil, err
		}
		return out, nil
	}
	err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		return run(dbctx.Context{Ctx: dbc.Ctx, Tx: tx})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
