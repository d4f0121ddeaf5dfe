package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsync/internal/core"
	"spendsync/internal/log"
	"spendsync/internal/repository/memory"
)

var testSecret = []byte("test-secret")

func userIDFromToken(t *testing.T, token string) string {
	t.Helper()
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return testSecret, nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	return claims.UserID
}

func TestAuthServiceRegister(t *testing.T) {
	ctx := context.Background()
	s := NewAuthService(memory.NewUserRepository(), testSecret, time.Hour, log.Discard())

	tests := []struct {
		name                  string
		email, password, user string
		wantErr               error
	}{
		{"missing name", "a@example.com", "pw", "", core.ErrMissingFields},
		{"missing password", "a@example.com", "", "Ann", core.ErrMissingFields},
		{"bad email", "not-an-email", "pw", "Ann", core.ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Register(ctx, tt.email, tt.password, tt.user)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}

	u, token, err := s.Register(ctx, "ann@example.com", "pw", "Ann")
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, u.ID, userIDFromToken(t, token))

	again, token, err := s.Register(ctx, "ANN@example.com", "other", "Annie")
	require.NoError(t, err)
	assert.Equal(t, u, again)
	assert.Equal(t, u.ID, userIDFromToken(t, token))
}

func TestAuthServiceLoginCreatesUnknownUser(t *testing.T) {
	ctx := context.Background()
	s := NewAuthService(memory.NewUserRepository(), testSecret, time.Hour, log.Discard())

	_, _, err := s.Login(ctx, "bob@example.com", "")
	assert.ErrorIs(t, err, core.ErrMissingCredentials)

	first, token, err := s.Login(ctx, "bob@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "bob", first.Name)
	assert.Equal(t, first.ID, userIDFromToken(t, token))

	second, _, err := s.Login(ctx, "bob@example.com", "other")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}
