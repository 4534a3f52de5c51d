package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/lostfound/internal/model"
	"github.com/quocanhngo/lostfound/internal/service"
)

// DeviceHandler registers push tokens
type DeviceHandler struct {
	deviceService *service.DeviceService
}

func NewDeviceHandler(deviceService *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService}
}

// RegisterDevice godoc
// @Summary Register a push token
// @Description A token already registered to another user is moved to the caller.
// @Tags Devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.RegisterDeviceRequest true "Device token"
// @Success 200 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /devices [post]
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	var req model.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	if err := h.deviceService.Register(currentUserID(c), req.Token, req.Platform); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Device registered"})
}

// UnregisterDevice godoc
// @Summary Remove a push token
// @Tags Devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.UnregisterDeviceRequest true "Device token"
// @Success 200 {object} model.SuccessResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /devices [delete]
func (h *DeviceHandler) UnregisterDevice(c *gin.Context) {
	var req model.UnregisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	if err := h.deviceService.Unregister(currentUserID(c), req.Token); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Device removed"})
}
