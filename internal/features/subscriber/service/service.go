package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subgate-bot/internal/features/subscriber/models"
	"subgate-bot/internal/features/subscriber/repository"
)

var ErrSubscriberNotFound = repository.ErrNotFound

// Service owns the subscription lifecycle: registration on first
// contact, promotion on settlement, additive renewal and cancellation.
type Service struct {
	repo repository.SubscriberRepository
}

func New(repo repository.SubscriberRepository) *Service {
	return &Service{repo: repo}
}

// UsernameAt renders the @-handle stored alongside the raw username.
func UsernameAt(username string) string {
	if username == "" || username == "Unknown" {
		return ""
	}
	return "@" + username
}

// Register creates the subscriber on first contact with the resting
// label and a degenerate window (start=end=now). On later contacts only
// the profile fields are refreshed; subscription state is untouched.
func (s *Service) Register(ctx context.Context, userID int64, firstName, username string) (*models.Subscriber, error) {
	sub, err := s.repo.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		now := time.Now()
		sub = &models.Subscriber{
			UserID:            userID,
			FirstName:         firstName,
			Username:          username,
			UsernameAt:        UsernameAt(username),
			Label:             models.LabelBasic,
			SubscriptionStart: now,
			SubscriptionEnd:   now,
		}
		if err := s.repo.Upsert(ctx, sub); err != nil {
			return nil, err
		}
		return sub, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProfile(ctx, userID, firstName, username, UsernameAt(username)); err != nil {
		return nil, err
	}
	sub.FirstName = firstName
	sub.Username = username
	sub.UsernameAt = UsernameAt(username)
	return sub, nil
}

func (s *Service) Get(ctx context.Context, userID int64) (*models.Subscriber, error) {
	return s.repo.Get(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]models.Subscriber, error) {
	return s.repo.ListAll(ctx)
}

// Promote establishes a fresh paid window starting now. Used for new
// purchases and admin grants; renewals go through Extend instead.
func (s *Service) Promote(ctx context.Context, userID int64, username string, label models.Label, duration time.Duration) (*models.Subscriber, error) {
	if !label.Paid() {
		return nil, fmt.Errorf("promote to %q: not a paid label", label)
	}

	firstName := "Unknown"
	if existing, err := s.repo.Get(ctx, userID); err == nil {
		firstName = existing.FirstName
		if username == "" || username == "Unknown" {
			username = existing.Username
		}
	}

	now := time.Now()
	sub := &models.Subscriber{
		UserID:            userID,
		FirstName:         firstName,
		Username:          username,
		UsernameAt:        UsernameAt(username),
		Label:             label,
		SubscriptionStart: now,
		SubscriptionEnd:   now.Add(duration),
	}
	if err := s.repo.Upsert(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Extend lengthens the access window additively. The renewal base is the
// later of now and the stored end, so an expired subscription restarts
// from the renewal moment instead of compounding.
func (s *Service) Extend(ctx context.Context, userID int64, duration time.Duration) (time.Time, error) {
	sub, err := s.repo.Get(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}

	base := sub.SubscriptionEnd
	if now := time.Now(); base.Before(now) {
		base = now
	}
	newEnd := base.Add(duration)

	if err := s.repo.SetSubscriptionEnd(ctx, userID, newEnd); err != nil {
		return time.Time{}, err
	}
	return newEnd, nil
}

// Cancel collapses the subscription immediately: resting label, window
// closed now. The record itself is never deleted.
func (s *Service) Cancel(ctx context.Context, userID int64) error {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.SetLabel(ctx, userID, models.LabelBasic); err != nil {
		return err
	}
	return s.repo.SetSubscriptionEnd(ctx, userID, time.Now())
}
