package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("s3cret")

	token, exp, err := GenerateToken(secret, "kitchen", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "kitchen", claims.Subject)
	assert.Equal(t, OperatorRole, claims.Role)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _, err := GenerateToken([]byte("a"), "kitchen", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken([]byte("b"), token)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	token, _, err := GenerateToken([]byte("a"), "kitchen", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken([]byte("a"), token)
	assert.Error(t, err)
}

func TestParseToken_RequiresOperatorRole(t *testing.T) {
	secret := []byte("a")
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:             "guest",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	token, err := raw.SignedString(secret)
	require.NoError(t, err)

	_, err = ParseToken(secret, token)
	assert.Error(t, err)
}

func TestGenerateToken_EmptySecret(t *testing.T) {
	_, _, err := GenerateToken(nil, "kitchen", time.Hour)
	assert.Error(t, err)
}
