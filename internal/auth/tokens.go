package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/mrlokans/kitaplik/internal/apperror"
)

const defaultTokenExpiry = 5 * time.Minute

// SignupClaims carry a pending account until its email is confirmed.
type SignupClaims struct {
	Username     string `json:"user_name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	jwt.RegisteredClaims
}

// ResetClaims identify the account whose password may be replaced.
type ResetClaims struct {
	UserID uint   `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies short-lived HS256 tokens with one secret.
type TokenSigner struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewTokenSigner(secret string, expiry time.Duration) *TokenSigner {
	if expiry <= 0 {
		expiry = defaultTokenExpiry
	}
	return &TokenSigner{secret: []byte(secret), expiry: expiry, now: time.Now}
}

func (s *TokenSigner) SignSignup(claims SignupClaims) (string, error) {
	claims.RegisteredClaims = s.registered()
	return s.sign(claims)
}

func (s *TokenSigner) SignReset(claims ResetClaims) (string, error) {
	claims.RegisteredClaims = s.registered()
	return s.sign(claims)
}

func (s *TokenSigner) ParseSignup(token string) (*SignupClaims, error) {
	claims := &SignupClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *TokenSigner) ParseReset(token string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *TokenSigner) registered() jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
	}
}

func (s *TokenSigner) sign(claims jwt.Claims) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("token secret not configured")
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// parse maps an expired token to apperror.TokenExpired and any other
// failure to Unauthenticated.
func (s *TokenSigner) parse(token string, claims jwt.Claims) error {
	if token == "" {
		return apperror.Validation("Missing parameters")
	}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return apperror.TokenExpired()
		}
		return apperror.Unauthenticated("Invalid token")
	}
	return nil
}
