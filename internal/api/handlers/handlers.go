// Package handlers translates HTTP requests into service calls.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ridepool/ridepool/internal/api/dto"
	apperrors "github.com/ridepool/ridepool/pkg/errors"
	"github.com/ridepool/ridepool/pkg/logger"
)

// Handlers aggregates the per-area handlers for route registration
type Handlers struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Rides         *RideHandler
	Invites       *InviteHandler
	Notifications *NotificationHandler
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, dto.OK(data))
}

func respondError(c *gin.Context, log *logger.Logger, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		log.Error("request failed",
			logger.String("path", c.FullPath()),
			logger.Err(err),
		)
	}
	c.JSON(appErr.Status, dto.Err(appErr))
}

func bindJSON(c *gin.Context, log *logger.Logger, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, log, apperrors.Validation("Invalid body"))
		return false
	}
	return true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.Validation("Invalid " + name)
	}
	return id, nil
}
