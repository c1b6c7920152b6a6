package models

import (
	"errors"
	"time"

	"subgate-bot/internal/features/subscriber/models"
)

var ErrUnknownTier = errors.New("unknown subscription tier")

// Tier is one fixed subscription product: a duration/price pair and the
// label it grants.
type Tier struct {
	Code     string
	Name     string
	Label    models.Label
	Amount   int // price in rubles
	Duration time.Duration
}

// Tier codes double as callback data in the subscription keyboard and as
// the tier part of correlation labels, so they are stable identifiers.
const (
	TierDay   = "sub_basic"
	TierWeek  = "sub_standard"
	TierMonth = "sub_premium"
)

var tiers = map[string]Tier{
	TierDay: {
		Code:     TierDay,
		Name:     "Day pass",
		Label:    models.LabelDay,
		Amount:   90,
		Duration: 24 * time.Hour,
	},
	TierWeek: {
		Code:     TierWeek,
		Name:     "Week pass",
		Label:    models.LabelStandard,
		Amount:   440,
		Duration: 7 * 24 * time.Hour,
	},
	TierMonth: {
		Code:     TierMonth,
		Name:     "Month pass",
		Label:    models.LabelPremium,
		Amount:   1620,
		Duration: 30 * 24 * time.Hour,
	},
}

// TierByCode resolves a tier code coming from callback data or a
// correlation label.
func TierByCode(code string) (Tier, error) {
	t, ok := tiers[code]
	if !ok {
		return Tier{}, ErrUnknownTier
	}
	return t, nil
}

// AllTiers returns the product table in display order.
func AllTiers() []Tier {
	return []Tier{tiers[TierDay], tiers[TierWeek], tiers[TierMonth]}
}
