package auth

import (
	"testing"
	"time"

	"facad/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	user := &repository.User{
		Id:          42,
		DisplayName: "Ana Souza",
		Permissions: []string{repository.PermissionAdmin, repository.PermissionEvaluator},
	}

	tokenString, err := CreateToken(user)
	require.NoError(t, err)

	token, err := ParseToken(tokenString)
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := &Claims{}
	require.NoError(t, claims.FromJWTClaims(token.Claims))
	assert.NoError(t, claims.Valid())
	assert.Equal(t, 42, claims.UserId)
	assert.Equal(t, []repository.Permission{repository.PermissionAdmin, repository.PermissionEvaluator}, claims.Permissions)
	assert.Greater(t, claims.Exp, time.Now().Unix())
}

func TestTokenWithoutPermissions(t *testing.T) {
	tokenString, err := CreateToken(&repository.User{Id: 7, DisplayName: "Bruno Lima"})
	require.NoError(t, err)

	token, err := ParseToken(tokenString)
	require.NoError(t, err)

	claims := &Claims{}
	require.NoError(t, claims.FromJWTClaims(token.Claims))
	assert.Empty(t, claims.Permissions)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, err := ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestFromJWTClaimsRejectsMissingFields(t *testing.T) {
	claims := &Claims{}

	err := claims.FromJWTClaims(jwt.MapClaims{"exp": float64(time.Now().Unix())})
	assert.Error(t, err)

	err = claims.FromJWTClaims(jwt.MapClaims{"user_id": float64(1)})
	assert.Error(t, err)
}

func TestClaimsValidRejectsExpired(t *testing.T) {
	claims := &Claims{
		UserId: 1,
		Exp:    time.Now().Add(-time.Minute).Unix(),
	}
	assert.ErrorIs(t, claims.Valid(), jwt.ErrTokenExpired)
}
