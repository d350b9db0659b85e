package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ridepool/ridepool/internal/api/dto"
	"github.com/ridepool/ridepool/internal/api/middleware"
	authsvc "github.com/ridepool/ridepool/internal/service/auth"
	"github.com/ridepool/ridepool/pkg/logger"
)

// RefreshTokenCookie is the cookie carrying the refresh token
const RefreshTokenCookie = "refresh-token"

// AuthHandler handles registration, login, and token refresh
type AuthHandler struct {
	auth   *authsvc.Service
	logger *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *authsvc.Service, log *logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: log}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	pair, err := h.auth.Register(c.Request.Context(), authsvc.RegisterParams{
		PhoneNumber: req.PhoneNumber,
		OTP:         req.OTP,
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Gender:      req.Gender,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.setTokenCookies(c, pair)
	respond(c, http.StatusCreated, pair)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.setTokenCookies(c, pair)
	respond(c, http.StatusOK, pair)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", false, false)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", "", false, true)
	respond(c, http.StatusOK, gin.H{"message": "Logged out"})
}

// SendOTP handles POST /auth/otp
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req dto.SendOTPRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	if err := h.auth.SendOTP(c.Request.Context(), req.PhoneNumber); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "OTP sent"})
}

// ResetPassword handles POST /auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.PhoneNumber, req.OTP, req.Password); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Password updated"})
}

// Refresh handles POST /auth/refresh. The refresh token comes from the
// refresh-token cookie or the request body.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, _ := c.Cookie(RefreshTokenCookie)
	if token == "" {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.ShouldBindJSON(&req); err == nil {
			token = req.RefreshToken
		}
	}

	pair, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.setTokenCookies(c, pair)
	respond(c, http.StatusOK, pair)
}

func (h *AuthHandler) setTokenCookies(c *gin.Context, pair *authsvc.TokenPair) {
	c.SetCookie(middleware.AccessTokenCookie, pair.AccessToken, 0, "/", "", false, false)
	c.SetCookie(RefreshTokenCookie, pair.RefreshToken, 0, "/", "", false, true)
}
