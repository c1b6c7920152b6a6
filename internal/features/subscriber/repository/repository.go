package repository

import (
	"context"
	"errors"
	"time"

	"subgate-bot/internal/features/subscriber/models"
)

var ErrNotFound = errors.New("subscriber not found")

// SubscriberRepository defines persistence operations for the subscriber
// table. Implementations must be safe for concurrent use; every mutation
// touches a single row.
type SubscriberRepository interface {
	Get(ctx context.Context, userID int64) (*models.Subscriber, error)
	Upsert(ctx context.Context, sub *models.Subscriber) error
	// UpdateProfile refreshes mutable profile metadata without touching
	// any subscription field.
	UpdateProfile(ctx context.Context, userID int64, firstName, username, usernameAt string) error
	SetLabel(ctx context.Context, userID int64, label models.Label) error
	SetSubscriptionEnd(ctx context.Context, userID int64, end time.Time) error
	ListAll(ctx context.Context) ([]models.Subscriber, error)
	// ListPaid returns every subscriber holding a paid label, regardless
	// of whether the window has lapsed.
	ListPaid(ctx context.Context) ([]models.Subscriber, error)
	// ListExpired returns paid-label subscribers whose window ended
	// before now. Never-subscribed users are excluded by design.
	ListExpired(ctx context.Context, now time.Time) ([]models.Subscriber, error)
	CountByLabel(ctx context.Context) (map[models.Label]int64, error)
}
