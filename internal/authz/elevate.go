package authz

import (
	"context"
	"errors"
	"time"
)

// ErrElevationDenied is returned when elevated trust is requested for a
// subject other than the authenticated user.
var ErrElevationDenied = errors.New("authz: elevated trust denied")

// WithElevatedTrust creates a bypass context for a user principal.
//
// The bypass is granted only when the context carries an authenticated
// user principal whose id equals subject. Callers must have verified the
// subject's role before asking for elevation.
func WithElevatedTrust(ctx context.Context, reason, subject string) (context.Context, error) {
	if subject == "" {
		return nil, ErrElevationDenied
	}

	userID, ok := AuthenticatedUserID(ctx)
	if !ok || userID != subject {
		return nil, ErrElevationDenied
	}

	info := BypassInfo{
		Reason:    reason,
		Timestamp: time.Now(),
		Principal: MustGetPrincipal(ctx),
		Subject:   subject,
	}

	recordBypassAudit(ctx, info)

	return context.WithValue(ctx, bypassKey{}, info), nil
}

// RunWithElevatedTrust runs fn with elevated trust pinned to subject.
func RunWithElevatedTrust[T any](ctx context.Context, reason, subject string, fn func(ctx context.Context) (T, error)) (T, error) {
	elevatedCtx, err := WithElevatedTrust(ctx, reason, subject)
	if err != nil {
		var zero T
		return zero, err
	}

	return fn(elevatedCtx)
}
