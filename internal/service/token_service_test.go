package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "mirror-credentials-secret-for-tests"

var tokenNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTokenService(secret, issuer string, expiry time.Duration) *JWTTokenService {
	svc := NewJWTTokenService(secret, expiry, issuer)
	svc.now = func() time.Time { return tokenNow }
	return svc
}

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := newTokenService(testJWTSecret, "flashpay", time.Hour)

	token, expiresAt, err := svc.Generate(testMerchant)
	require.NoError(t, err)
	assert.Equal(t, tokenNow.Add(time.Hour), expiresAt)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, testMerchant, claims.MerchantID)
}

func TestJWTTokenService_EmptyMerchant(t *testing.T) {
	_, _, err := newTokenService(testJWTSecret, "flashpay", time.Hour).Generate("")
	assert.Error(t, err, "the mirror has no anonymous credentials")
}

func TestJWTTokenService_ExpiresWithClock(t *testing.T) {
	svc := newTokenService(testJWTSecret, "flashpay", time.Minute)
	token, _, err := svc.Generate(testMerchant)
	require.NoError(t, err)

	svc.now = func() time.Time { return tokenNow.Add(2 * time.Minute) }
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTTokenService_Rejects(t *testing.T) {
	signer := newTokenService(testJWTSecret, "flashpay", time.Hour)
	token, _, err := signer.Generate(testMerchant)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "flashpay",
		ExpiresAt: jwt.NewNumericDate(tokenNow.Add(time.Hour)),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	tests := []struct {
		name      string
		validator *JWTTokenService
		token     string
	}{
		{"other issuer", newTokenService(testJWTSecret, "someone-else", time.Hour), token},
		{"other secret", newTokenService("another-secret", "flashpay", time.Hour), token},
		{"garbage", signer, "not.a.valid.jwt"},
		{"empty", signer, ""},
		{"no subject", signer, noSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.validator.Validate(tt.token)
			assert.Error(t, err)
		})
	}
}
