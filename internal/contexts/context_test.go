package contexts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTraceAndRequestID(t *testing.T) {
	ctx := t.Context()

	_, ok := GetTraceID(ctx)
	require.False(t, ok)

	ctx = WithTraceID(ctx, "cf-trace")
	ctx = WithRequestID(ctx, "cf-request")

	traceID, ok := GetTraceID(ctx)
	require.True(t, ok)
	require.Equal(t, "cf-trace", traceID)

	requestID, ok := GetRequestID(ctx)
	require.True(t, ok)
	require.Equal(t, "cf-request", requestID)
}

func TestOperationName(t *testing.T) {
	ctx := WithOperationName(context.Background(), "POST /v1/cases/:case_id/status")

	name, ok := GetOperationName(ctx)
	require.True(t, ok)
	require.Equal(t, "POST /v1/cases/:case_id/status", name)
}

func TestDerivedContextDoesNotMutateParent(t *testing.T) {
	parent := WithOrganizationID(context.Background(), "org-a")
	child := WithOrganizationID(parent, "org-b")

	parentOrg, ok := GetOrganizationID(parent)
	require.True(t, ok)
	require.Equal(t, "org-a", parentOrg)

	childOrg, ok := GetOrganizationID(child)
	require.True(t, ok)
	require.Equal(t, "org-b", childOrg)
}

func TestNilContext(t *testing.T) {
	//nolint:staticcheck // nil context is tolerated by getters.
	_, ok := GetTraceID(nil)
	require.False(t, ok)
}
