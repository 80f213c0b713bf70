package authz

import (
	"context"
	"errors"
	"testing"
)

func TestWithBypassPrivacy(t *testing.T) {
	ctx := NewSystemContext(context.Background())

	bypassCtx, err := WithBypassPrivacy(ctx, "test-reason")
	if err != nil {
		t.Fatalf("WithBypassPrivacy failed: %v", err)
	}

	info, ok := GetBypassInfo(bypassCtx)
	if !ok {
		t.Fatal("GetBypassInfo should return true after WithBypassPrivacy")
	}

	if info.Reason != "test-reason" {
		t.Errorf("Reason = %v, want %v", info.Reason, "test-reason")
	}

	if !info.Principal.IsSystem() {
		t.Error("Principal should be system type")
	}

	if info.Elevated() {
		t.Error("System bypass should not be elevated")
	}

	if info.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestWithBypassPrivacy_RejectsUser(t *testing.T) {
	ctx := NewUserContext(context.Background(), "u-1")

	if _, err := WithBypassPrivacy(ctx, "nope"); err == nil {
		t.Error("User principal must not get a system bypass")
	}

	if _, err := WithBypassPrivacy(context.Background(), "nope"); err == nil {
		t.Error("Anonymous context must not get a bypass")
	}
}

func TestRunWithBypass(t *testing.T) {
	ctx := NewSystemContext(context.Background())

	executed := false

	result, err := RunWithBypass(ctx, "test-closure", func(bypassCtx context.Context) (string, error) {
		executed = true

		if !IsBypassActive(bypassCtx) {
			t.Error("Bypass should be active inside closure")
		}

		return "success", nil
	})
	if err != nil {
		t.Fatalf("RunWithBypass failed: %v", err)
	}

	if !executed {
		t.Error("Closure should be executed")
	}

	if result != "success" {
		t.Errorf("Result = %v, want %v", result, "success")
	}

	if IsBypassActive(ctx) {
		t.Error("Bypass should not be active outside closure")
	}
}

func TestRunWithBypass_ErrorPropagation(t *testing.T) {
	ctx := NewSystemContext(context.Background())

	expectedErr := context.Canceled

	_, err := RunWithBypass(ctx, "test-error", func(bypassCtx context.Context) (string, error) {
		return "", expectedErr
	})
	if !errors.Is(err, expectedErr) {
		t.Errorf("Error should be propagated: got %v, want %v", err, expectedErr)
	}
}

func TestRequireSystemPrincipal(t *testing.T) {
	if err := RequireSystemPrincipal(NewSystemContext(context.Background())); err != nil {
		t.Errorf("RequireSystemPrincipal should pass for system principal: %v", err)
	}

	if err := RequireSystemPrincipal(NewUserContext(context.Background(), "u-1")); err == nil {
		t.Error("RequireSystemPrincipal should fail for user principal")
	}

	if err := RequireSystemPrincipal(context.Background()); err == nil {
		t.Error("RequireSystemPrincipal should fail when no principal")
	}
}

func TestSetAuditLogger(t *testing.T) {
	originalLogger := auditLogger

	defer func() {
		auditLogger = originalLogger
	}()

	var captured AuditRecord

	SetAuditLogger(func(ctx context.Context, record AuditRecord) {
		captured = record
	})

	if _, err := WithBypassPrivacy(NewSystemContext(context.Background()), "custom-audit-test"); err != nil {
		t.Fatalf("WithBypassPrivacy failed: %v", err)
	}

	if captured.Reason != "custom-audit-test" {
		t.Errorf("Custom logger should be called with reason: got %v", captured.Reason)
	}

	if captured.Principal != "system" {
		t.Errorf("Custom logger should capture principal: got %v", captured.Principal)
	}

	if captured.Operation != "bypass" {
		t.Errorf("Operation should be 'bypass': got %v", captured.Operation)
	}
}

func TestWithTestBypass(t *testing.T) {
	ctx := WithTestBypass(context.Background())

	if !IsBypassActive(ctx) {
		t.Error("WithTestBypass should activate bypass")
	}

	if !MustGetPrincipal(ctx).IsTest() {
		t.Error("WithTestBypass should set test principal")
	}
}
