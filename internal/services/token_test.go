package services

import (
	"testing"
	"time"

	"oaforum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens, err := NewTokenService("test-secret-key", time.Hour)
	require.NoError(t, err)

	signed, err := tokens.Generate(&models.User{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)

	claims, err := tokens.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.ID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestTokenRejects(t *testing.T) {
	tokens, err := NewTokenService("test-secret-key", time.Hour)
	require.NoError(t, err)
	other, err := NewTokenService("another-secret", time.Hour)
	require.NoError(t, err)

	foreign, err := other.Generate(&models.User{ID: "u1"})
	require.NoError(t, err)
	_, err = tokens.Validate(foreign)
	assert.Error(t, err)

	issued := time.Now()
	tokens.now = func() time.Time { return issued }
	expiring, err := tokens.Generate(&models.User{ID: "u1"})
	require.NoError(t, err)
	tokens.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = tokens.Validate(expiring)
	assert.EqualError(t, err, "token expired")

	_, err = tokens.Validate("garbage")
	assert.Error(t, err)

	_, err = NewTokenService("short", time.Hour)
	assert.Error(t, err)
}
