package models

import "time"

// Label is the access-control tier stored per subscriber. Any paid label
// combined with a future SubscriptionEnd means the user is admitted to
// the gated channel; LabelBasic is the resting state after expiry or
// cancellation (and for users who never paid).
type Label string

const (
	LabelBasic    Label = "basic_user"
	LabelDay      Label = "day_user"
	LabelStandard Label = "standard_user"
	LabelPremium  Label = "premium_user"
)

// Paid reports whether the label represents a paid tier.
func (l Label) Paid() bool {
	return l == LabelDay || l == LabelStandard || l == LabelPremium
}

// Subscriber is one Telegram user tracked for paid-access purposes.
// Identity is the Telegram user ID; profile fields are refreshed on every
// interaction independently of the subscription window.
type Subscriber struct {
	UserID            int64
	FirstName         string
	Username          string
	UsernameAt        string
	Label             Label
	SubscriptionStart time.Time
	SubscriptionEnd   time.Time
	UpdatedAt         time.Time
}

// Active reports whether the subscriber currently holds paid access.
func (s *Subscriber) Active(now time.Time) bool {
	return s.Label.Paid() && s.SubscriptionEnd.After(now)
}

// Expired reports whether a paid window has lapsed. Never-subscribed
// users (resting label) are deliberately excluded.
func (s *Subscriber) Expired(now time.Time) bool {
	return s.Label.Paid() && !s.SubscriptionEnd.After(now)
}

// Remaining returns the time left in the access window, zero if lapsed.
func (s *Subscriber) Remaining(now time.Time) time.Duration {
	left := s.SubscriptionEnd.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
