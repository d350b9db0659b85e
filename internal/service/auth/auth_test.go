package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridepool/ridepool/internal/store/memstore"
	apperrors "github.com/ridepool/ridepool/pkg/errors"
	"github.com/ridepool/ridepool/pkg/logger"
)

const testOTP = "123456"

func newTestService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()

	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	require.NoError(t, err)

	st := memstore.New()
	svc := NewService(st, &StaticVerifier{Code: testOTP}, Config{
		JWTSecret:  "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}, log)
	return svc, st
}

func validRegistration() RegisterParams {
	return RegisterParams{
		PhoneNumber: "+919876543210",
		OTP:         testOTP,
		Name:        "Asha",
		Email:       "asha@example.com",
		Password:    "correct horse",
		Gender:      "female",
	}
}

// TestRegister_TokenRoundTrip registers and parses the issued access token
func TestRegister_TokenRoundTrip(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	userID, err := svc.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)

	u, err := st.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", u.Email)
	assert.Equal(t, "FEMALE", string(u.Gender))
	assert.NotEqual(t, "correct horse", u.PasswordHash)
}

// TestRegister_Validation exercises the registration guards
func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*RegisterParams)
		wantStatus int
	}{
		{
			name:       "short password",
			mutate:     func(p *RegisterParams) { p.Password = "short" },
			wantStatus: 400,
		},
		{
			name:       "phone without country code",
			mutate:     func(p *RegisterParams) { p.PhoneNumber = "9876543210" },
			wantStatus: 400,
		},
		{
			name:       "malformed email",
			mutate:     func(p *RegisterParams) { p.Email = "not-an-email" },
			wantStatus: 400,
		},
		{
			name:       "wrong OTP",
			mutate:     func(p *RegisterParams) { p.OTP = "654321" },
			wantStatus: 401,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)

			params := validRegistration()
			tt.mutate(&params)

			_, err := svc.Register(context.Background(), params)
			require.Error(t, err)
			assert.Equal(t, tt.wantStatus, apperrors.GetAppError(err).Status)
		})
	}
}

// TestRegister_ExistingPhone conflicts instead of creating a duplicate
func TestRegister_ExistingPhone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	again := validRegistration()
	again.Email = "other@example.com"
	_, err = svc.Register(ctx, again)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.GetAppError(err).Status)
}

// TestRegister_ExistingEmail conflicts when only the email collides; the
// pre-check covers phone, so this exercises the store's sentinel mapping.
func TestRegister_ExistingEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	again := validRegistration()
	again.PhoneNumber = "+919876543211"
	_, err = svc.Register(ctx, again)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.GetAppError(err).Status)
}

// TestLogin verifies credentials against the stored hash
func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	pair, err := svc.Login(ctx, "asha@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = svc.Login(ctx, "asha@example.com", "wrong password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

// TestRefresh_RejectsAccessToken keeps the token types apart
func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	require.Error(t, err)
	assert.Equal(t, 401, apperrors.GetAppError(err).Status)

	rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)

	// Refresh tokens never pass as access tokens either
	_, err = svc.ParseAccessToken(pair.RefreshToken)
	assert.Error(t, err)
}

// TestResetPassword swaps the hash for a phone-verified user
func TestResetPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, "+919876543210", testOTP, "a brand new password"))

	_, err = svc.Login(ctx, "asha@example.com", "correct horse")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "asha@example.com", "a brand new password")
	assert.NoError(t, err)
}
