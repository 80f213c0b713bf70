package middleware

import (
	"errors"
	"net/http"
	"strings"
)

var (
	errMissingAuthorization = errors.New("Authorization header is required")
	errNotBearer            = errors.New("Authorization header must start with 'Bearer '")
	errEmptyToken           = errors.New("token is required")
)

// ExtractBearerToken returns the token of the Authorization header.
// The scheme is matched case-insensitively.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errMissingAuthorization
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errNotBearer
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", errEmptyToken
	}

	return token, nil
}
