package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ridepool/ridepool/internal/api/dto"
	"github.com/ridepool/ridepool/internal/api/middleware"
	usersvc "github.com/ridepool/ridepool/internal/service/user"
	"github.com/ridepool/ridepool/pkg/logger"
)

// UserHandler handles profile reads and updates
type UserHandler struct {
	users  *usersvc.Service
	logger *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *usersvc.Service, log *logger.Logger) *UserHandler {
	return &UserHandler{users: users, logger: log}
}

// GetMe handles GET /users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	profile, err := h.users.GetProfile(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, profile)
}

// UpdateMe handles PATCH /users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req dto.UpdateUserRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	if err := h.users.UpdateProfile(c.Request.Context(), middleware.CallerID(c), req.Name, req.Gender); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Profile updated"})
}

// UpdatePhone handles PATCH /users/me/phone
func (h *UserHandler) UpdatePhone(c *gin.Context) {
	var req dto.UpdatePhoneRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	if err := h.users.UpdatePhone(c.Request.Context(), middleware.CallerID(c), req.PhoneNumber, req.OTP); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Phone number updated"})
}
