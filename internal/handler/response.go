package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/middleware"
	"github.com/quocanhngo/lostfound/internal/model"
	"github.com/quocanhngo/lostfound/internal/service"
)

// respondError maps service errors to HTTP responses
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Internal server error"})
	}
}

func currentUserID(c *gin.Context) uuid.UUID {
	return c.MustGet(middleware.ContextUserID).(uuid.UUID)
}

// pathID parses the :id route parameter, writing a 400 on failure
func pathID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid " + what + " ID"})
		return uuid.Nil, false
	}
	return id, true
}
