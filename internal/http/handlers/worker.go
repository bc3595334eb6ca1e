package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/oni-coach-backend/internal/http/response"
	"github.com/yungbote/oni-coach-backend/internal/jobs/worker"
)

type CycleRunner interface {
	RunOnce(ctx context.Context) error
}

type WorkerHandler struct {
	runner CycleRunner
}

func NewWorkerHandler(runner CycleRunner) *WorkerHandler {
	return &WorkerHandler{runner: runner}
}

// POST /internal/worker/run
func (h *WorkerHandler) RunOnce(c *gin.Context) {
	if err := h.runner.RunOnce(c.Request.Context()); err != nil {
		if errors.Is(err, worker.ErrCycleInProgress) {
			response.RespondError(c, http.StatusConflict, "cycle_in_progress", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "worker_run_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
