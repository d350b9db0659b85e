// Package auth implements registration, login, and token refresh. Phone
// verification is delegated to an external SMS provider behind OTPVerifier.
package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ridepool/ridepool/internal/domain/user"
	"github.com/ridepool/ridepool/internal/store"
	apperrors "github.com/ridepool/ridepool/pkg/errors"
	"github.com/ridepool/ridepool/pkg/logger"
)

const (
	// MinPasswordLen is the minimum password length
	MinPasswordLen = 8
	// OTPLen is the expected one-time-password length
	OTPLen = 6

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	phoneRE = regexp.MustCompile(`^\+91\d{10}$`)
	emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidPhone reports whether phone is an Indian number with country code
func ValidPhone(phone string) bool {
	return phoneRE.MatchString(phone)
}

// ValidEmail reports whether email looks like an email address
func ValidEmail(email string) bool {
	return emailRE.MatchString(email)
}

// TokenPair is an access/refresh token pair
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Config holds token settings
type Config struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Service handles authentication
type Service struct {
	store  store.Store
	otp    OTPVerifier
	cfg    Config
	logger *logger.Logger
}

// NewService creates a new auth service
func NewService(st store.Store, otp OTPVerifier, cfg Config, log *logger.Logger) *Service {
	return &Service{store: st, otp: otp, cfg: cfg, logger: log}
}

// RegisterParams carries a registration request
type RegisterParams struct {
	PhoneNumber string
	OTP         string
	Name        string
	Email       string
	Password    string
	Gender      string
}

// Register creates a user once the phone number is verified via OTP and
// returns a token pair.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*TokenPair, error) {
	if len(params.Password) < MinPasswordLen {
		return nil, apperrors.Validation("Password must be at least 8 characters long")
	}
	if !ValidPhone(params.PhoneNumber) {
		return nil, apperrors.Validation("Please provide an Indian phone number with country code")
	}
	if len(params.OTP) != OTPLen {
		return nil, apperrors.Validation("Invalid OTP")
	}
	if !ValidEmail(params.Email) {
		return nil, apperrors.Validation("Invalid email")
	}
	gender := user.Gender(strings.ToUpper(params.Gender))
	if !gender.IsValid() {
		return nil, apperrors.Validation("Please provide gender")
	}

	if _, err := s.store.GetUserByPhone(ctx, params.PhoneNumber); err == nil {
		return nil, apperrors.Conflict("Please login", nil)
	} else if !errors.Is(err, user.ErrUserNotFound) {
		return nil, apperrors.Store("Failed to look up user", err)
	}

	ok, err := s.otp.Check(ctx, params.PhoneNumber, params.OTP)
	if err != nil {
		return nil, apperrors.Internal("Failed to verify OTP", err)
	}
	if !ok {
		return nil, apperrors.Unauthorized("Wrong OTP", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password", err)
	}

	now := time.Now()
	u := &user.User{
		ID:           uuid.New(),
		Name:         params.Name,
		Email:        params.Email,
		PhoneNumber:  params.PhoneNumber,
		Gender:       gender,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) || errors.Is(err, user.ErrPhoneTaken) {
			return nil, apperrors.Conflict("Please login", err)
		}
		return nil, apperrors.Store("Failed to create user", err)
	}

	s.logger.Info("user registered", logger.String("user_id", u.ID.String()))
	return s.mintPair(u.ID)
}

// Login authenticates by email and password
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if email == "" || password == "" {
		return nil, apperrors.Validation("Please provide email and password")
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Store("Failed to look up user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.mintPair(u.ID)
}

// ResetPassword replaces the password for a phone-verified user
func (s *Service) ResetPassword(ctx context.Context, phone, otp, newPassword string) error {
	if len(newPassword) < MinPasswordLen {
		return apperrors.Validation("Password must be at least 8 characters long")
	}
	if !ValidPhone(phone) {
		return apperrors.Validation("Invalid phone number")
	}
	if len(otp) != OTPLen {
		return apperrors.Validation("Invalid OTP")
	}

	u, err := s.store.GetUserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.Store("Failed to look up user", err)
	}

	ok, err := s.otp.Check(ctx, phone, otp)
	if err != nil {
		return apperrors.Internal("Failed to verify OTP", err)
	}
	if !ok {
		return apperrors.Unauthorized("Wrong OTP", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal("Failed to hash password", err)
	}
	if err := s.store.UpdateUserPassword(ctx, u.ID, string(hash)); err != nil {
		return apperrors.Store("Failed to update password", err)
	}
	return nil
}

// SendOTP asks the SMS provider to deliver a verification code
func (s *Service) SendOTP(ctx context.Context, phone string) error {
	if !ValidPhone(phone) {
		return apperrors.Validation("Please provide an Indian phone number with country code")
	}
	if err := s.otp.Send(ctx, phone); err != nil {
		return apperrors.Internal("Failed to send OTP", err)
	}
	return nil
}

// Refresh rotates a refresh token into a new token pair
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := s.parseToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid refresh token", err)
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, apperrors.Unauthorized("Invalid refresh token", err)
	}
	return s.mintPair(userID)
}

// ParseAccessToken validates an access token and returns the caller id
func (s *Service) ParseAccessToken(token string) (uuid.UUID, error) {
	return s.parseToken(token, tokenTypeAccess)
}

type claims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func (s *Service) mintPair(userID uuid.UUID) (*TokenPair, error) {
	access, err := s.mint(userID, tokenTypeAccess, s.cfg.AccessTTL)
	if err != nil {
		return nil, apperrors.Internal("Failed to create access token", err)
	}
	refresh, err := s.mint(userID, tokenTypeRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return nil, apperrors.Internal("Failed to create refresh token", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) mint(userID uuid.UUID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *Service) parseToken(raw, wantType string) (uuid.UUID, error) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, jwt.ErrTokenUnverifiable
	}
	if c.TokenType != wantType {
		return uuid.Nil, jwt.ErrTokenInvalidClaims
	}
	return uuid.Parse(c.Subject)
}
