//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"finance-billing/internal/domain"
	"finance-billing/internal/domain/model"

	"github.com/google/uuid"
)

func TestSubscriptionRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)

	activate := func(t *testing.T, userID string, plan model.Plan, expires time.Time) *model.Subscription {
		t.Helper()
		s, err := repo.Activate(ctx, nil, &model.Subscription{ID: uuid.NewString(), UserID: userID, Plan: plan, ExpiresAt: expires})
		if err != nil {
			t.Fatalf("activate: %v", err)
		}
		return s
	}

	t.Run("should upsert a single row per user", func(t *testing.T) {
		cleanup(t)
		first := activate(t, "user-1", model.PlanProMonthly, time.Now().Add(24*time.Hour))
		second := activate(t, "user-1", model.PlanProYearly, time.Now().Add(365*24*time.Hour))

		if first.ID != second.ID {
			t.Errorf("expected the row id to survive reactivation, got %s and %s", first.ID, second.ID)
		}
		if second.Plan != model.PlanProYearly || second.Status != model.SubscriptionStatusActive {
			t.Errorf("expected overwritten plan and ACTIVE, got %+v", second)
		}
		counts, err := repo.CountByStatus(ctx, nil)
		if err != nil || counts[model.SubscriptionStatusActive] != 1 {
			t.Fatalf("expected one active row, got %v err=%v", counts, err)
		}
	})

	t.Run("should cancel keeping the expiry", func(t *testing.T) {
		cleanup(t)
		s := activate(t, "user-2", model.PlanProMonthly, time.Now().Add(24*time.Hour))
		c, err := repo.Cancel(ctx, nil, "user-2")
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if c.Status != model.SubscriptionStatusCancelled || !c.ExpiresAt.Equal(s.ExpiresAt) {
			t.Errorf("unexpected cancelled row %+v", c)
		}
		if _, err := repo.Cancel(ctx, nil, "user-2"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for a second cancel, got %v", err)
		}
	})

	t.Run("should expire only rows past their expiry", func(t *testing.T) {
		cleanup(t)
		activate(t, "past", model.PlanProMonthly, time.Now().Add(-time.Hour))
		activate(t, "future", model.PlanProMonthly, time.Now().Add(time.Hour))
		activate(t, "cancelled-past", model.PlanProMonthly, time.Now().Add(-time.Minute))
		if _, err := repo.Cancel(ctx, nil, "cancelled-past"); err != nil {
			t.Fatalf("cancel: %v", err)
		}

		n, err := repo.MarkExpired(ctx, nil, time.Now())
		if err != nil {
			t.Fatalf("mark expired: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 rows expired, got %d", n)
		}
		past, _ := repo.FindByUser(ctx, nil, "past")
		future, _ := repo.FindByUser(ctx, nil, "future")
		if past.Status != model.SubscriptionStatusExpired {
			t.Errorf("expected past row EXPIRED, got %s", past.Status)
		}
		if future.Status != model.SubscriptionStatusActive {
			t.Errorf("expected future row untouched, got %s", future.Status)
		}
	})
}
