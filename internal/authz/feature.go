package authz

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/looplj/caseflow/internal/features"
	"github.com/looplj/caseflow/internal/log"
	"github.com/looplj/caseflow/internal/roles"
)

// FeatureChecker resolves the permission matrix.
type FeatureChecker interface {
	IsAllowed(ctx context.Context, role roles.Role, key features.Key) (bool, error)
}

// HasFeature reports whether the principal in ctx, holding role, may use key.
// System and test principals are always allowed; lookup errors deny.
func HasFeature(ctx context.Context, checker FeatureChecker, role roles.Role, key features.Key) bool {
	p, ok := GetPrincipal(ctx)
	if !ok {
		return false
	}

	var has bool

	switch p.Type {
	case PrincipalTypeSystem, PrincipalTypeTest:
		has = true
	case PrincipalTypeUser:
		allowed, err := checker.IsAllowed(ctx, role, key)
		if err != nil {
			log.Warn(ctx, "authz: feature lookup failed", log.String("feature", string(key)), log.Cause(err))
		}

		has = err == nil && allowed
	case PrincipalTypeUnknown:
		has = false
	default:
		has = false
	}

	log.Debug(ctx, "authz: feature decision",
		log.String("principal", p.String()),
		log.String("role", string(role)),
		log.String("feature", string(key)),
		log.String("decision", lo.Ternary(has, "allow", "deny")),
	)

	return has
}

// RequireFeature is HasFeature returning an error on deny.
func RequireFeature(ctx context.Context, checker FeatureChecker, role roles.Role, key features.Key) error {
	if !HasFeature(ctx, checker, role, key) {
		p, _ := GetPrincipal(ctx)
		return fmt.Errorf("authz: principal %s with role %q does not have feature %s", p.String(), role, key)
	}

	return nil
}
