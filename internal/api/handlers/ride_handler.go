package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ridepool/ridepool/internal/api/dto"
	"github.com/ridepool/ridepool/internal/api/middleware"
	ridesvc "github.com/ridepool/ridepool/internal/service/ride"
	"github.com/ridepool/ridepool/pkg/logger"
	"github.com/ridepool/ridepool/pkg/monitoring"
)

// RideHandler handles the ride lifecycle endpoints
type RideHandler struct {
	rides      *ridesvc.Service
	monitoring *monitoring.NewRelicApp
	logger     *logger.Logger
}

// NewRideHandler creates a new ride handler
func NewRideHandler(rides *ridesvc.Service, nr *monitoring.NewRelicApp, log *logger.Logger) *RideHandler {
	return &RideHandler{rides: rides, monitoring: nr, logger: log}
}

// CreateRide handles POST /rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req dto.CreateRideRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	stops := make([]ridesvc.StopParams, len(req.Stops))
	for i, s := range req.Stops {
		stops[i] = ridesvc.StopParams{Lat: s.Lat, Lon: s.Lon, Name: s.Name}
	}

	created, err := h.rides.CreateRide(c.Request.Context(), middleware.CallerID(c), ridesvc.CreateRideParams{
		Stops:             stops,
		PeopleCount:       req.PeopleCount,
		Capacity:          req.Capacity,
		EarliestDeparture: time.UnixMilli(req.EarliestDeparture),
		LatestDeparture:   time.UnixMilli(req.LatestDeparture),
		VehicleType:       req.VehicleType,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, created)
}

// CancelRide handles POST /rides/current/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	var req dto.CancelRideRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	if err := h.rides.CancelRide(c.Request.Context(), middleware.CallerID(c), req.Reason); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.monitoring.RecordRideCancelled()
	respond(c, http.StatusOK, gin.H{"message": "Ride cancelled"})
}

// GetCurrentRide handles GET /rides/current
func (h *RideHandler) GetCurrentRide(c *gin.Context) {
	r, err := h.rides.GetCurrentRide(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, r)
}

// GetRides handles GET /rides
func (h *RideHandler) GetRides(c *gin.Context) {
	rides, err := h.rides.GetRides(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, rides)
}
