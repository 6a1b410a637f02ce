package gateway

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestTokenVerifier_ValidToken(t *testing.T) {
	v := NewTokenVerifier("secret")

	bidderID, err := v.Verify(signToken(t, "secret", "bidder-1"))
	require.NoError(t, err)
	assert.Equal(t, "bidder-1", bidderID)
}

func TestTokenVerifier_Rejects(t *testing.T) {
	v := NewTokenVerifier("secret")

	_, err := v.Verify("")
	assert.Error(t, err, "empty token")

	_, err = v.Verify("not-a-jwt")
	assert.Error(t, err, "garbage token")

	_, err = v.Verify(signToken(t, "other-secret", "bidder-1"))
	assert.Error(t, err, "wrong signing key")

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := noSub.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = v.Verify(signed)
	assert.Error(t, err, "missing subject")
}

func TestBearerToken_HeaderAndQueryFallback(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws/t1", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", bearerToken(r))

	r = httptest.NewRequest("GET", "/ws/t1?token=from-query", nil)
	assert.Equal(t, "from-query", bearerToken(r))

	r = httptest.NewRequest("GET", "/ws/t1", nil)
	assert.Equal(t, "", bearerToken(r))
}
