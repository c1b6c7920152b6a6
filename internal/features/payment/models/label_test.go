package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationLabelString(t *testing.T) {
	assert.Equal(t, "42_sub_basic", CorrelationLabel{UserID: 42, TierCode: TierDay}.String())
	assert.Equal(t, "42_extend_sub_premium", CorrelationLabel{UserID: 42, TierCode: TierMonth, Renewal: true}.String())
}

func TestParseCorrelationLabel(t *testing.T) {
	t.Run("new purchase", func(t *testing.T) {
		l, err := ParseCorrelationLabel("100500_sub_standard")
		require.NoError(t, err)
		assert.Equal(t, int64(100500), l.UserID)
		assert.Equal(t, TierWeek, l.TierCode)
		assert.False(t, l.Renewal)
	})

	t.Run("renewal", func(t *testing.T) {
		l, err := ParseCorrelationLabel("7_extend_sub_basic")
		require.NoError(t, err)
		assert.Equal(t, int64(7), l.UserID)
		assert.Equal(t, TierDay, l.TierCode)
		assert.True(t, l.Renewal)
	})

	t.Run("round trip", func(t *testing.T) {
		orig := CorrelationLabel{UserID: 33, TierCode: TierMonth, Renewal: true}
		parsed, err := ParseCorrelationLabel(orig.String())
		require.NoError(t, err)
		assert.Equal(t, orig, parsed)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		for _, s := range []string{"", "justone", "abc_sub_basic", "42_not_a_tier", "42_extend", "42"} {
			_, err := ParseCorrelationLabel(s)
			assert.Error(t, err, "input %q", s)
		}
	})
}

func TestTierByCode(t *testing.T) {
	tier, err := TierByCode(TierWeek)
	require.NoError(t, err)
	assert.Equal(t, 440, tier.Amount)
	assert.Equal(t, 7*24*60, int(tier.Duration.Minutes()))

	_, err = TierByCode("sub_yearly")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestAllTiersOrder(t *testing.T) {
	all := AllTiers()
	require.Len(t, all, 3)
	assert.Equal(t, TierDay, all[0].Code)
	assert.Equal(t, TierWeek, all[1].Code)
	assert.Equal(t, TierMonth, all[2].Code)
}
