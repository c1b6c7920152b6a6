package models

import (
	"fmt"
	"strconv"
	"strings"
)

// CorrelationLabel ties a payment back to the purchase that created it.
// It is attached to the payment request, echoed back by the settlement
// ledger, and never persisted locally.
type CorrelationLabel struct {
	UserID   int64
	TierCode string
	Renewal  bool
}

// String encodes the label in the wire format the ledger echoes back:
// "<user_id>_<tier>" for a new purchase, "<user_id>_extend_<tier>" for a
// renewal.
func (l CorrelationLabel) String() string {
	if l.Renewal {
		return fmt.Sprintf("%d_extend_%s", l.UserID, l.TierCode)
	}
	return fmt.Sprintf("%d_%s", l.UserID, l.TierCode)
}

// ParseCorrelationLabel decodes a ledger label. Tier codes themselves
// contain underscores, so only the leading user id (and an optional
// "extend" marker) are split off; the remainder is the tier code.
func ParseCorrelationLabel(s string) (CorrelationLabel, error) {
	parts := strings.Split(s, "_")
	if len(parts) < 2 {
		return CorrelationLabel{}, fmt.Errorf("malformed correlation label %q", s)
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return CorrelationLabel{}, fmt.Errorf("malformed correlation label %q: %w", s, err)
	}

	rest := parts[1:]
	label := CorrelationLabel{UserID: userID}
	if rest[0] == "extend" {
		label.Renewal = true
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return CorrelationLabel{}, fmt.Errorf("malformed correlation label %q", s)
	}
	label.TierCode = strings.Join(rest, "_")

	if _, err := TierByCode(label.TierCode); err != nil {
		return CorrelationLabel{}, fmt.Errorf("correlation label %q: %w", s, err)
	}
	return label, nil
}
