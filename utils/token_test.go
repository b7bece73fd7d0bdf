package utils

import (
	"testing"
	"time"

	"office-chat/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var key = []byte("test-access-key")

func TestParseTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, model.RoleAdmin, false, time.Hour, key)
	require.NoError(t, err)

	id, err := ParseToken(token, key)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id.ID)
	assert.Equal(t, model.RoleAdmin, id.Role)
	assert.False(t, id.Otp)
	assert.Greater(t, id.Exp, time.Now().Unix())
}

func TestParseTokenRejects(t *testing.T) {
	expired, err := GenerateToken(1, model.RoleEmployee, false, -time.Minute, key)
	require.NoError(t, err)
	_, err = ParseToken(expired, key)
	assert.ErrorIs(t, err, ErrInvalidToken)

	good, err := GenerateToken(1, model.RoleEmployee, false, time.Hour, key)
	require.NoError(t, err)
	_, err = ParseToken(good, []byte("other-key"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "1"}).SignedString(key)
	require.NoError(t, err)
	_, err = ParseToken(hs256, key)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("not-a-token", key)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseIdentityClaims(t *testing.T) {
	id, err := ParseIdentity(jwt.MapClaims{"id": float64(9), "otp": true})
	require.NoError(t, err)
	assert.EqualValues(t, 9, id.ID)
	assert.True(t, id.Otp)
	assert.Equal(t, model.RoleEmployee, id.Role)

	for _, claims := range []jwt.MapClaims{{}, {"id": "abc"}, {"id": float64(0)}, {"id": 1.5}, {"id": true}} {
		_, err := ParseIdentity(claims)
		assert.ErrorIs(t, err, ErrInvalidToken, "%v", claims)
	}
}
