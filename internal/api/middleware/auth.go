package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ridepool/ridepool/internal/api/dto"
	authsvc "github.com/ridepool/ridepool/internal/service/auth"
)

const callerIDKey = "callerID"

// AccessTokenCookie is the cookie carrying the access token
const AccessTokenCookie = "access-token"

// RequireAuth validates the access token from the Authorization header or the
// access-token cookie and stores the caller id on the request context.
func RequireAuth(auth *authsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
				token = cookie
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Err("Please Login"))
			return
		}

		callerID, err := auth.ParseAccessToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Err("Please Login"))
			return
		}

		c.Set(callerIDKey, callerID)
		c.Next()
	}
}

// CallerID returns the authenticated caller's id
func CallerID(c *gin.Context) uuid.UUID {
	id, _ := c.Get(callerIDKey)
	callerID, _ := id.(uuid.UUID)
	return callerID
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
