package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestTokenParser(t *testing.T) {
	p := NewTokenParser("jwt-secret")
	exp := time.Now().Add(time.Hour).Unix()

	claims, err := p.Parse(sign(t, "jwt-secret", jwt.MapClaims{"sub": "u-1", "typ": "access", "exp": exp}), "access")
	require.NoError(t, err)
	assert.Equal(t, "u-1", UserID(claims))

	_, err = p.Parse(sign(t, "jwt-secret", jwt.MapClaims{"sub": "u-1", "typ": "refresh", "exp": exp}), "access")
	assert.Error(t, err)

	_, err = p.Parse(sign(t, "other", jwt.MapClaims{"sub": "u-1", "exp": exp}), "")
	assert.Error(t, err)

	_, err = p.Parse(sign(t, "jwt-secret", jwt.MapClaims{"sub": "u-1", "exp": time.Now().Add(-time.Minute).Unix()}), "")
	assert.Error(t, err)

	_, err = NewTokenParser("").Parse("x", "")
	assert.EqualError(t, err, "JWT secret not configured")

	assert.Equal(t, "u-2", UserID(jwt.MapClaims{"user_id": "u-2"}))
}
