package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func accessClaims(userID string, expiresIn time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		UserID: userID,
		Email:  "alice@example.com",
		Role:   "customer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "user-service",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
}

func newValidator(t *testing.T, issuer string) *Validator {
	t.Helper()
	v, err := NewValidator(testSecret, issuer, 0)
	require.NoError(t, err)
	return v
}

func TestValidateAccessToken(t *testing.T) {
	v := newValidator(t, "user-service")
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), accessClaims("7", time.Hour))

	claims, err := v.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.UserID)
	assert.Equal(t, "customer", claims.Role)
}

func TestValidateAccessToken_SubjectFallback(t *testing.T) {
	v := newValidator(t, "")
	c := accessClaims("", time.Hour)
	c.Subject = "9"

	claims, err := v.ValidateAccessToken(sign(t, jwt.SigningMethodHS256, []byte(testSecret), c))
	require.NoError(t, err)
	assert.Equal(t, "9", claims.UserID)
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	v := newValidator(t, "user-service")

	wrongIssuer := accessClaims("7", time.Hour)
	wrongIssuer.Issuer = "someone-else"

	noExpiry := accessClaims("7", time.Hour)
	noExpiry.ExpiresAt = nil

	tests := map[string]string{
		"expired":      sign(t, jwt.SigningMethodHS256, []byte(testSecret), accessClaims("7", -time.Minute)),
		"wrong secret": sign(t, jwt.SigningMethodHS256, []byte("other"), accessClaims("7", time.Hour)),
		"wrong issuer": sign(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer),
		"no expiry":    sign(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry),
		"no subject":   sign(t, jwt.SigningMethodHS256, []byte(testSecret), accessClaims("", time.Hour)),
		"none alg":     sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, accessClaims("7", time.Hour)),
		"garbage":      "not.a.token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.ValidateAccessToken(token)
			assert.Error(t, err)
		})
	}
}

func TestNewValidator_EmptySecret(t *testing.T) {
	_, err := NewValidator("", "", 0)
	assert.Error(t, err)
}

func TestTokenValidator(t *testing.T) {
	v := newValidator(t, "")
	validate := v.TokenValidator()

	c := accessClaims("1", time.Hour)
	c.Role = "admin"
	claims, err := validate(sign(t, jwt.SigningMethodHS256, []byte(testSecret), c))
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
	assert.Equal(t, "1", claims.UserID)

	_, err = validate("bogus")
	assert.Error(t, err)
}
