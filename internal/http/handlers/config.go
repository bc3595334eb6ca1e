package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/oni-coach-backend/internal/config"
	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
	"github.com/yungbote/oni-coach-backend/internal/http/response"
)

type ConfigAdmin interface {
	Catalog() *config.Catalog
	Get(ctx context.Context, key string) (config.Value, error)
	Set(ctx context.Context, key, value, changedBy string, source coach.ChangeSource) (*coach.Configuration, error)
	Reset(ctx context.Context, key, changedBy string) (*coach.Configuration, error)
	History(ctx context.Context, key string, limit int) ([]*coach.ConfigAuditLog, error)
}

type ConfigHandler struct {
	cfg ConfigAdmin
}

func NewConfigHandler(cfg ConfigAdmin) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// GET /internal/config
func (h *ConfigHandler) ListConfig(c *gin.Context) {
	entries := h.cfg.Catalog().Entries()
	out := make([]config.Value, 0, len(entries))
	for _, e := range entries {
		v, err := h.cfg.Get(c.Request.Context(), e.Key)
		if err != nil {
			response.RespondAPIError(c, "load_config_failed", err)
			return
		}
		out = append(out, v)
	}
	response.RespondOK(c, gin.H{"config": out})
}

// GET /internal/config/:key
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	v, err := h.cfg.Get(c.Request.Context(), key)
	if err != nil {
		response.RespondAPIError(c, "load_config_failed", err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("history", "0"))
	if limit <= 0 {
		response.RespondOK(c, v)
		return
	}
	hist, err := h.cfg.History(c.Request.Context(), key, limit)
	if err != nil {
		response.RespondAPIError(c, "load_config_history_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"value": v, "history": hist})
}

type setConfigRequest struct {
	Value     string `json:"value"`
	ChangedBy string `json:"changed_by"`
	Source    string `json:"source"`
}

// PUT /internal/config/:key
func (h *ConfigHandler) SetConfig(c *gin.Context) {
	var req setConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	source := coach.ChangeSource(strings.TrimSpace(req.Source))
	if source == "" {
		source = coach.SourceAPI
	}
	row, err := h.cfg.Set(c.Request.Context(), strings.TrimSpace(c.Param("key")), req.Value, req.ChangedBy, source)
	if err != nil {
		response.RespondAPIError(c, "set_config_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"config": row})
}

// DELETE /internal/config/:key restores the catalog default.
func (h *ConfigHandler) ResetConfig(c *gin.Context) {
	row, err := h.cfg.Reset(c.Request.Context(), strings.TrimSpace(c.Param("key")), c.Query("changed_by"))
	if err != nil {
		response.RespondAPIError(c, "reset_config_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"config": row})
}
