package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/looplj/caseflow/internal/log"
)

type AuthConfig struct {
	// Secret signs and verifies HS256 tokens.
	Secret   string        `conf:"secret" yaml:"secret" json:"-"`
	Issuer   string        `conf:"issuer" yaml:"issuer" json:"issuer"`
	TokenTTL time.Duration `conf:"token_ttl" yaml:"token_ttl" json:"token_ttl"`
}

func NewAuthService(cfg AuthConfig) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &AuthService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
	}
}

// AuthService verifies bearer tokens. The subject claim is the user id.
type AuthService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// GenerateJWTToken signs a token for userID. Used by operators and tests.
func (s *AuthService) GenerateJWTToken(ctx context.Context, userID string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrAuthNotConfigured
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// AuthenticateJWTToken validates tokenString and returns its subject.
func (s *AuthService) AuthenticateJWTToken(ctx context.Context, tokenString string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrAuthNotConfigured
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidJWT, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidJWT)
	}

	log.Debug(ctx, "token authenticated", log.String("user_id", claims.Subject))

	return claims.Subject, nil
}
