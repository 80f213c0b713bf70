package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/looplj/caseflow/internal/log"
)

// bypassKey is an unexported key type to prevent external forgery.
type bypassKey struct{}

// BypassInfo stores bypass metadata.
type BypassInfo struct {
	Reason    string
	Timestamp time.Time
	Principal Principal

	// Subject is set for elevated-trust bypasses and pins the evaluation
	// to the authenticated user.
	Subject string
}

// Elevated reports whether the bypass was granted through RunWithElevatedTrust.
func (i BypassInfo) Elevated() bool {
	return i.Subject != ""
}

// WithBypassPrivacy creates a local bypass context.
// Only Principal=System or Test are allowed to call.
// reason must be a stable audit identifier (e.g., "seed-permissions", "provision-organization").
func WithBypassPrivacy(ctx context.Context, reason string) (context.Context, error) {
	p, ok := GetPrincipal(ctx)
	if !ok {
		return nil, fmt.Errorf("authz: WithBypassPrivacy requires a principal in context")
	}

	if !p.IsSystem() && !p.IsTest() {
		return nil, fmt.Errorf("authz: WithBypassPrivacy requires system or test principal, got %s", p.String())
	}

	info := BypassInfo{
		Reason:    reason,
		Timestamp: time.Now(),
		Principal: p,
	}

	recordBypassAudit(ctx, info)

	return context.WithValue(ctx, bypassKey{}, info), nil
}

// RunWithBypass executes bypass operation within a closure, limiting bypass scope.
// Recommended to use this method to prevent bypass context from spreading along the call chain.
//
// Example usage:
//
//	n, err := authz.RunWithBypass(ctx, "seed-permissions", func(ctx context.Context) (int, error) {
//	    return svc.seed(ctx)
//	})
func RunWithBypass[T any](ctx context.Context, reason string, fn func(ctx context.Context) (T, error)) (T, error) {
	bypassCtx, err := WithBypassPrivacy(ctx, reason)
	if err != nil {
		var zero T
		return zero, err
	}

	return fn(bypassCtx)
}

// GetBypassInfo retrieves current bypass information.
// Used for audit and debugging.
func GetBypassInfo(ctx context.Context) (BypassInfo, bool) {
	if ctx == nil {
		return BypassInfo{}, false
	}

	info, ok := ctx.Value(bypassKey{}).(BypassInfo)

	return info, ok
}

// IsBypassActive checks if current context is in bypass state.
func IsBypassActive(ctx context.Context) bool {
	_, ok := GetBypassInfo(ctx)
	return ok
}

// AuditRecord represents a bypass audit record.
type AuditRecord struct {
	Timestamp   time.Time
	Principal   string
	Subject     string
	Reason      string
	Operation   string
	Description string
}

// auditLogger is the bypass audit logger.
// Can be customized via SetAuditLogger.
var auditLogger func(ctx context.Context, record AuditRecord)

// SetAuditLogger sets a custom audit logger.
// If not set, the global logger is used.
func SetAuditLogger(fn func(ctx context.Context, record AuditRecord)) {
	auditLogger = fn
}

func recordBypassAudit(ctx context.Context, info BypassInfo) {
	operation := "bypass"
	if info.Elevated() {
		operation = "elevate"
	}

	record := AuditRecord{
		Timestamp:   info.Timestamp,
		Principal:   info.Principal.String(),
		Subject:     info.Subject,
		Reason:      info.Reason,
		Operation:   operation,
		Description: fmt.Sprintf("Policy %s triggered: reason=%s, principal=%s", operation, info.Reason, info.Principal.String()),
	}

	if auditLogger != nil {
		auditLogger(ctx, record)
		return
	}

	log.Debug(ctx, "authz: policy bypass",
		log.String("principal", record.Principal),
		log.String("subject", record.Subject),
		log.String("reason", record.Reason),
		log.String("operation", record.Operation),
	)
}

// RequirePrincipal checks if a principal exists, otherwise returns error.
func RequirePrincipal(ctx context.Context) error {
	_, ok := GetPrincipal(ctx)
	if !ok {
		return fmt.Errorf("authz: no principal in context")
	}

	return nil
}
