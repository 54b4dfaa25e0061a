package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

var errNoSubject = errors.New("token has no merchant subject")

// JWTTokenService issues and checks the HS256 credentials a ledger context
// presents to the mirror API. The subject is the merchant id.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
	now    func() time.Time
}

func NewJWTTokenService(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{secret: []byte(secret), expiry: expiry, issuer: issuer, now: time.Now}
}

// Generate signs a token for merchantID.
func (s *JWTTokenService) Generate(merchantID string) (string, time.Time, error) {
	if merchantID == "" {
		return "", time.Time{}, errors.New("empty merchant id")
	}
	issued := s.now()
	expiresAt := issued.Add(s.expiry)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   merchantID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing mirror token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate checks signature, issuer and expiry and returns the merchant the
// token was issued to.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing mirror token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errNoSubject
	}
	return &ports.TokenClaims{MerchantID: claims.Subject}, nil
}
