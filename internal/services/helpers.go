package services

import (
	"context"

	"github.com/tbjornsen/grantor/internal/authz"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// invalidate drops memoised access decisions after a grant-affecting write.
// Services tolerate a nil invalidator so tests can wire only what they need.
func invalidate(inv authz.Invalidator) {
	if inv != nil {
		inv.InvalidateDecisions()
	}
}

func dedupeUints(values []uint) []uint {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[uint]struct{}, len(values))
	out := make([]uint, 0, len(values))
	for _, value := range values {
		if value == 0 {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
