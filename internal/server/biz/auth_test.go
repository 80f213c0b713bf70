package biz

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RoundTrip(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "s3cret", Issuer: "caseflow", TokenTTL: time.Hour})
	ctx := context.Background()

	token, err := svc.GenerateJWTToken(ctx, "alice")
	require.NoError(t, err)

	userID, err := svc.AuthenticateJWTToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "alice", userID)
}

func TestAuthService_Rejects(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "s3cret", Issuer: "caseflow"})
	ctx := context.Background()

	sign := func(method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)

		return s
	}

	now := time.Now()
	valid := jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "caseflow",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "wrong secret", token: sign(jwt.SigningMethodHS256, []byte("other"), valid)},
		{name: "wrong algorithm", token: sign(jwt.SigningMethodHS512, []byte("s3cret"), valid)},
		{name: "expired", token: sign(jwt.SigningMethodHS256, []byte("s3cret"), jwt.RegisteredClaims{
			Subject: "alice", Issuer: "caseflow", ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		})},
		{name: "no expiry", token: sign(jwt.SigningMethodHS256, []byte("s3cret"), jwt.RegisteredClaims{Subject: "alice", Issuer: "caseflow"})},
		{name: "wrong issuer", token: sign(jwt.SigningMethodHS256, []byte("s3cret"), jwt.RegisteredClaims{
			Subject: "alice", Issuer: "other", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})},
		{name: "no subject", token: sign(jwt.SigningMethodHS256, []byte("s3cret"), jwt.RegisteredClaims{
			Issuer: "caseflow", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AuthenticateJWTToken(ctx, tt.token)
			require.ErrorIs(t, err, ErrInvalidJWT)
		})
	}
}

func TestAuthService_NotConfigured(t *testing.T) {
	svc := NewAuthService(AuthConfig{})

	_, err := svc.GenerateJWTToken(context.Background(), "alice")
	require.ErrorIs(t, err, ErrAuthNotConfigured)

	_, err = svc.AuthenticateJWTToken(context.Background(), "x")
	require.ErrorIs(t, err, ErrAuthNotConfigured)
}
