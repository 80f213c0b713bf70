package authz

import (
	"context"
	"testing"
)

func TestPrincipalType_String(t *testing.T) {
	tests := []struct {
		name string
		p    PrincipalType
		want string
	}{
		{"system", PrincipalTypeSystem, "system"},
		{"user", PrincipalTypeUser, "user"},
		{"test", PrincipalTypeTest, "test"},
		{"unknown", PrincipalType(999), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.String(); got != tt.want {
				t.Errorf("PrincipalType.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrincipal_String(t *testing.T) {
	tests := []struct {
		name string
		p    Principal
		want string
	}{
		{"system", Principal{Type: PrincipalTypeSystem}, "system"},
		{"user with id", Principal{Type: PrincipalTypeUser, UserID: "u-1"}, "user:u-1"},
		{"user without id", Principal{Type: PrincipalTypeUser}, "user:unknown"},
		{"unknown", Principal{}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.String(); got != tt.want {
				t.Errorf("Principal.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithPrincipal(t *testing.T) {
	ctx := context.Background()
	user := Principal{Type: PrincipalTypeUser, UserID: "u-1"}

	ctx, err := WithPrincipal(ctx, user)
	if err != nil {
		t.Fatalf("WithPrincipal failed: %v", err)
	}

	// Setting the same principal again is idempotent.
	if _, err := WithPrincipal(ctx, user); err != nil {
		t.Errorf("WithPrincipal should be idempotent: %v", err)
	}

	// A different principal conflicts.
	if _, err := WithPrincipal(ctx, Principal{Type: PrincipalTypeUser, UserID: "u-2"}); err == nil {
		t.Error("WithPrincipal should reject a conflicting principal")
	}

	got := MustGetPrincipal(ctx)
	if got != user {
		t.Errorf("MustGetPrincipal() = %v, want %v", got, user)
	}
}

func TestMustGetPrincipal_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustGetPrincipal should panic without principal")
		}
	}()

	MustGetPrincipal(context.Background())
}

func TestAuthenticatedUserID(t *testing.T) {
	if _, ok := AuthenticatedUserID(context.Background()); ok {
		t.Error("anonymous context should not have an authenticated user")
	}

	if _, ok := AuthenticatedUserID(NewSystemContext(context.Background())); ok {
		t.Error("system context should not have an authenticated user")
	}

	if _, ok := AuthenticatedUserID(NewUserContext(context.Background(), "")); ok {
		t.Error("blank user id should not count as authenticated")
	}

	userID, ok := AuthenticatedUserID(NewUserContext(context.Background(), "u-7"))
	if !ok || userID != "u-7" {
		t.Errorf("AuthenticatedUserID() = %v, %v, want u-7, true", userID, ok)
	}
}
