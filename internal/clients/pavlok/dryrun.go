package pavlok

import (
	"context"
	"fmt"

	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

type dryRun struct {
	log *logger.Logger
}

// NewDryRun logs stimuli instead of sending them.
func NewDryRun(log *logger.Logger) Client {
	return &dryRun{log: log.With("client", "PavlokDryRun")}
}

func (d *dryRun) Send(ctx context.Context, s coach.Stimulus) error {
	if !s.Valid() {
		return fmt.Errorf("pavlok: invalid stimulus %s/%d: %w", s.Type, s.Intensity, coach.ErrInvalidArgument)
	}
	d.log.Info("stimulus (dry run)", "type", s.Type, "intensity", s.Intensity)
	return nil
}

func (d *dryRun) Status(ctx context.Context) (*DeviceStatus, error) {
	return &DeviceStatus{Raw: map[string]any{"dry_run": true}}, nil
}
