package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/http/response"
	"github.com/yungbote/oni-coach-backend/internal/platform/dbctx"
	"github.com/yungbote/oni-coach-backend/internal/services"
)

type ScheduleHandler struct {
	schedules services.ScheduleService
}

func NewScheduleHandler(schedules services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

func parseScheduleID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || id == uuid.Nil {
		if err == nil {
			err = fmt.Errorf("nil schedule id")
		}
		response.RespondError(c, http.StatusBadRequest, "invalid_schedule_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// GET /internal/schedules/:id
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	id, ok := parseScheduleID(c)
	if !ok {
		return
	}
	detail, err := h.schedules.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondAPIError(c, "load_schedule_failed", err)
		return
	}
	response.RespondOK(c, detail)
}

type responseRequest struct {
	Result  string `json:"result"`
	Comment string `json:"comment"`
}

// POST /internal/schedules/:id/responses
func (h *ScheduleHandler) RecordResponse(c *gin.Context) {
	id, ok := parseScheduleID(c)
	if !ok {
		return
	}
	var req responseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	result := coach.ActionResult(strings.ToUpper(strings.TrimSpace(req.Result)))
	recorded, err := h.schedules.RecordResponse(dbctx.Context{Ctx: c.Request.Context()}, id, result, req.Comment)
	if err != nil {
		response.RespondAPIError(c, "record_response_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"recorded": recorded, "result": result})
}

// POST /internal/schedules/:id/plan
func (h *ScheduleHandler) SubmitPlan(c *gin.Context) {
	id, ok := parseScheduleID(c)
	if !ok {
		return
	}
	var req services.PlanSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.schedules.SubmitPlan(dbctx.Context{Ctx: c.Request.Context()}, id, req)
	if err != nil {
		response.RespondAPIError(c, "submit_plan_failed", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
