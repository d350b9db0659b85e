package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ridepool/ridepool/internal/api/middleware"
	notifysvc "github.com/ridepool/ridepool/internal/service/notification"
	"github.com/ridepool/ridepool/pkg/logger"
)

// NotificationHandler handles the notification read path
type NotificationHandler struct {
	notifications *notifysvc.Emitter
	logger        *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(emitter *notifysvc.Emitter, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: emitter, logger: log}
}

// List handles GET /notifications
func (h *NotificationHandler) List(c *gin.Context) {
	ns, err := h.notifications.List(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, ns)
}
