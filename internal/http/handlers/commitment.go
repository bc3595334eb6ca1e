package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/oni-coach-backend/internal/http/response"
	"github.com/yungbote/oni-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/oni-coach-backend/internal/services"
)

type CommitmentHandler struct {
	commitments services.CommitmentService
}

func NewCommitmentHandler(commitments services.CommitmentService) *CommitmentHandler {
	return &CommitmentHandler{commitments: commitments}
}

// GET /internal/users/:user_id/commitments
func (h *CommitmentHandler) ListCommitments(c *gin.Context) {
	rows, err := h.commitments.List(dbctx.Context{Ctx: c.Request.Context()}, c.Param("user_id"))
	if err != nil {
		response.RespondAPIError(c, "list_commitments_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"commitments": rows})
}

type replaceCommitmentsRequest struct {
	Commitments []services.CommitmentInput `json:"commitments"`
}

// PUT /internal/users/:user_id/commitments
func (h *CommitmentHandler) ReplaceCommitments(c *gin.Context) {
	var req replaceCommitmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	rows, err := h.commitments.Replace(dbctx.Context{Ctx: c.Request.Context()}, c.Param("user_id"), req.Commitments)
	if err != nil {
		response.RespondAPIError(c, "replace_commitments_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"commitments": rows})
}
