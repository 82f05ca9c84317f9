package contexthelper

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type callerKey struct{}

// CheckCancellation checks if the context is cancelled.
// If the context is cancelled, it returns ctx.Err().
func CheckCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// WithCaller attaches the authenticated caller identity to ctx.
func WithCaller(ctx context.Context, caller common.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the identity stored by WithCaller.
func CallerFromContext(ctx context.Context) (common.Address, bool) {
	caller, ok := ctx.Value(callerKey{}).(common.Address)
	return caller, ok
}
