package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testIssuer = "athlete-genesis"
)

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":    "user-1",
		"iss":    testIssuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": []string{"plans:read", "plans:write"},
	}
}

func TestParseAcceptsValidToken(t *testing.T) {
	token := signToken(t, validClaims(), testSecret)

	claims, err := Parse(token, Config{Secret: testSecret, Issuer: testIssuer})
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.True(t, claims.HasScope(ScopePlansRead))
	require.True(t, claims.HasScope(ScopePlansWrite))
	require.False(t, claims.HasScope("admin"))
}

func TestParseAcceptsSpaceSeparatedScopes(t *testing.T) {
	mc := validClaims()
	mc["scopes"] = "plans:read plans:write"
	token := signToken(t, mc, testSecret)

	claims, err := Parse(token, Config{Secret: testSecret, Issuer: testIssuer})
	require.NoError(t, err)
	require.True(t, claims.HasScope(ScopePlansRead))
}

func TestParseRejectsEmptyToken(t *testing.T) {
	_, err := Parse("   ", Config{Secret: testSecret, Issuer: testIssuer})
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token := signToken(t, validClaims(), "other-secret")

	_, err := Parse(token, Config{Secret: testSecret, Issuer: testIssuer})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	mc := validClaims()
	mc["iss"] = "someone-else"
	token := signToken(t, mc, testSecret)

	_, err := Parse(token, Config{Secret: testSecret, Issuer: testIssuer})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	mc := validClaims()
	mc["exp"] = time.Now().Add(-time.Minute).Unix()
	token := signToken(t, mc, testSecret)

	_, err := Parse(token, Config{Secret: testSecret, Issuer: testIssuer})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRequiresSubject(t *testing.T) {
	mc := validClaims()
	delete(mc, "sub")
	token := signToken(t, mc, testSecret)

	_, err := Parse(token, Config{Secret: testSecret, Issuer: testIssuer})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRequiresExpiry(t *testing.T) {
	mc := validClaims()
	delete(mc, "exp")
	token := signToken(t, mc, testSecret)

	_, err := Parse(token, Config{Secret: testSecret, Issuer: testIssuer})
	require.ErrorIs(t, err, ErrInvalidToken)
}
