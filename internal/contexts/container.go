package contexts

import (
	"context"
)

// contextContainer contains all request-scoped values in the context.
// It is copied on write so a derived context never mutates its parent.
type contextContainer struct {
	TraceID        *string
	RequestID      *string
	OperationName  *string
	OrganizationID *string
}

// getContainer retrieves the container from context, or returns an empty one.
func getContainer(ctx context.Context) contextContainer {
	if ctx == nil {
		return contextContainer{}
	}

	if container, ok := ctx.Value(containerContextKey).(*contextContainer); ok {
		return *container
	}

	return contextContainer{}
}

// withContainer stores a copy of the container in a derived context.
func withContainer(ctx context.Context, container contextContainer) context.Context {
	return context.WithValue(ctx, containerContextKey, &container)
}
