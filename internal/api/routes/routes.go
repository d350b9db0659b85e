package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/ridepool/ridepool/internal/api/handlers"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, requireAuth gin.HandlerFunc, nrApp *newrelic.Application) {
	if nrApp != nil {
		r.Use(nrgin.Middleware(nrApp))
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	v1 := r.Group("/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/logout", h.Auth.Logout)
			auth.POST("/otp", h.Auth.SendOTP)
			auth.POST("/reset-password", h.Auth.ResetPassword)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		authed := v1.Group("", requireAuth)
		{
			users := authed.Group("/users")
			{
				users.GET("/me", h.Users.GetMe)
				users.PATCH("/me", h.Users.UpdateMe)
				users.PATCH("/me/phone", h.Users.UpdatePhone)
			}

			rides := authed.Group("/rides")
			{
				rides.POST("", h.Rides.CreateRide)
				rides.GET("", h.Rides.GetRides)
				rides.GET("/current", h.Rides.GetCurrentRide)
				rides.POST("/current/cancel", h.Rides.CancelRide)
				rides.GET("/:rideID/invites", h.Invites.ListRideInvites)
			}

			invites := authed.Group("/invites")
			{
				invites.POST("", h.Invites.CreateInvite)
				invites.GET("", h.Invites.ListSentInvites)
				invites.POST("/:inviteID/accept", h.Invites.AcceptInvite)
				invites.POST("/:inviteID/decline", h.Invites.DeclineInvite)
			}

			authed.GET("/notifications", h.Notifications.List)
		}
	}
}
