package repository

import (
	"context"
	"time"

	"finance-billing/internal/domain/model"
)

// SubscriptionRepository stores at most one subscription per user.
type SubscriptionRepository interface {
	FindByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	// Activate creates the user's row or overwrites plan, status and expiry of
	// the existing one. The returned row keeps its original ID.
	Activate(ctx context.Context, tx Tx, s *model.Subscription) (*model.Subscription, error)
	// Cancel flips ACTIVE to CANCELLED keeping ExpiresAt.
	Cancel(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	// MarkExpired flips ACTIVE and CANCELLED rows with expires_at <= now to EXPIRED.
	MarkExpired(ctx context.Context, tx Tx, now time.Time) (int, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
