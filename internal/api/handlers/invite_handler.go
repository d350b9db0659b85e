package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ridepool/ridepool/internal/api/dto"
	"github.com/ridepool/ridepool/internal/api/middleware"
	invitesvc "github.com/ridepool/ridepool/internal/service/invite"
	apperrors "github.com/ridepool/ridepool/pkg/errors"
	"github.com/ridepool/ridepool/pkg/logger"
	"github.com/ridepool/ridepool/pkg/monitoring"
)

// InviteHandler handles the invite state machine endpoints
type InviteHandler struct {
	invites    *invitesvc.Service
	monitoring *monitoring.NewRelicApp
	logger     *logger.Logger
}

// NewInviteHandler creates a new invite handler
func NewInviteHandler(invites *invitesvc.Service, nr *monitoring.NewRelicApp, log *logger.Logger) *InviteHandler {
	return &InviteHandler{invites: invites, monitoring: nr, logger: log}
}

// CreateInvite handles POST /invites
func (h *InviteHandler) CreateInvite(c *gin.Context) {
	var req dto.CreateInviteRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	rideID, err := uuid.Parse(req.RideID)
	if err != nil {
		respondError(c, h.logger, apperrors.Validation("Invalid ride_id"))
		return
	}

	created, err := h.invites.CreateInvite(c.Request.Context(), middleware.CallerID(c), rideID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, created)
}

// AcceptInvite handles POST /invites/:inviteID/accept
func (h *InviteHandler) AcceptInvite(c *gin.Context) {
	inviteID, err := parseUUIDParam(c, "inviteID")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.invites.AcceptInvite(c.Request.Context(), middleware.CallerID(c), inviteID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.monitoring.RecordInviteAccepted()
	respond(c, http.StatusOK, gin.H{"message": "Invite accepted"})
}

// DeclineInvite handles POST /invites/:inviteID/decline
func (h *InviteHandler) DeclineInvite(c *gin.Context) {
	inviteID, err := parseUUIDParam(c, "inviteID")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req dto.DeclineInviteRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.invites.DeclineInvite(c.Request.Context(), middleware.CallerID(c), inviteID, req.Reason); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Invite declined"})
}

// ListRideInvites handles GET /rides/:rideID/invites
func (h *InviteHandler) ListRideInvites(c *gin.Context) {
	rideID, err := parseUUIDParam(c, "rideID")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	invites, err := h.invites.ListRideInvites(c.Request.Context(), middleware.CallerID(c), rideID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, invites)
}

// ListSentInvites handles GET /invites
func (h *InviteHandler) ListSentInvites(c *gin.Context) {
	invites, err := h.invites.ListSentInvites(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, invites)
}
