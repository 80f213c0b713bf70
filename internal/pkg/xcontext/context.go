package xcontext

import (
	"context"
	"time"
)

// DetachWithTimeout returns a context that keeps ctx values but not its
// cancellation, bounded by timeout.
func DetachWithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
