package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/oni-coach-backend/internal/clients/pavlok"
	"github.com/yungbote/oni-coach-backend/internal/http/response"
)

type DeviceStatusReader interface {
	Status(ctx context.Context) (*pavlok.DeviceStatus, error)
}

type DeviceHandler struct {
	device DeviceStatusReader
}

func NewDeviceHandler(device DeviceStatusReader) *DeviceHandler {
	return &DeviceHandler{device: device}
}

// GET /internal/device/status
func (h *DeviceHandler) Status(c *gin.Context) {
	st, err := h.device.Status(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusBadGateway, "device_status_failed", err)
		return
	}
	response.RespondOK(c, st)
}
