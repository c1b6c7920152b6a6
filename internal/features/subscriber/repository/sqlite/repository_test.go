package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgate-bot/internal/features/subscriber/models"
	"subgate-bot/internal/features/subscriber/repository"
	"subgate-bot/internal/platform/db"
)

func setupRepo(t *testing.T) *Repository {
	t.Helper()
	gdb, err := db.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		_ = sqlDB.Close()
	})
	repo, err := New(gdb)
	require.NoError(t, err)
	return repo
}

func testSubscriber(userID int64, label models.Label, end time.Time) *models.Subscriber {
	return &models.Subscriber{
		UserID:            userID,
		FirstName:         "Alex",
		Username:          "alex",
		UsernameAt:        "@alex",
		Label:             label,
		SubscriptionStart: end.Add(-24 * time.Hour),
		SubscriptionEnd:   end,
	}
}

func TestUpsertAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	end := time.Date(2026, 5, 1, 18, 30, 0, 0, time.Local)

	require.NoError(t, repo.Upsert(ctx, testSubscriber(1, models.LabelStandard, end)))

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alex", got.FirstName)
	assert.Equal(t, models.LabelStandard, got.Label)
	// Timestamps survive the string round trip to the second.
	assert.True(t, got.SubscriptionEnd.Equal(end))
	assert.True(t, got.SubscriptionStart.Equal(end.Add(-24*time.Hour)))
}

func TestGetMissing(t *testing.T) {
	repo := setupRepo(t)
	_, err := repo.Get(context.Background(), 404)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpsertOverwrites(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)

	require.NoError(t, repo.Upsert(ctx, testSubscriber(2, models.LabelBasic, end)))

	sub := testSubscriber(2, models.LabelPremium, end.Add(30*24*time.Hour))
	sub.FirstName = "Sasha"
	require.NoError(t, repo.Upsert(ctx, sub))

	got, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Sasha", got.FirstName)
	assert.Equal(t, models.LabelPremium, got.Label)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFieldUpdates(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)
	require.NoError(t, repo.Upsert(ctx, testSubscriber(3, models.LabelDay, end)))

	t.Run("profile", func(t *testing.T) {
		require.NoError(t, repo.UpdateProfile(ctx, 3, "New", "newname", "@newname"))
		got, err := repo.Get(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "New", got.FirstName)
		assert.Equal(t, "@newname", got.UsernameAt)
		// Window untouched by profile refresh.
		assert.True(t, got.SubscriptionEnd.Equal(end))
	})

	t.Run("label", func(t *testing.T) {
		require.NoError(t, repo.SetLabel(ctx, 3, models.LabelBasic))
		got, err := repo.Get(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, models.LabelBasic, got.Label)
	})

	t.Run("subscription end", func(t *testing.T) {
		newEnd := end.Add(7 * 24 * time.Hour)
		require.NoError(t, repo.SetSubscriptionEnd(ctx, 3, newEnd))
		got, err := repo.Get(ctx, 3)
		require.NoError(t, err)
		assert.True(t, got.SubscriptionEnd.Equal(newEnd))
	})

	t.Run("missing row", func(t *testing.T) {
		assert.ErrorIs(t, repo.UpdateProfile(ctx, 404, "x", "y", "@y"), repository.ErrNotFound)
		assert.ErrorIs(t, repo.SetLabel(ctx, 404, models.LabelBasic), repository.ErrNotFound)
		assert.ErrorIs(t, repo.SetSubscriptionEnd(ctx, 404, end), repository.ErrNotFound)
	})
}

// The storage layout does not sort chronologically as a string, so the
// expiry listing must compare parsed times. A December end date sorts
// lexicographically above a January one; only real parsing gets this
// right.
func TestListExpiredParsesDates(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.Local)

	// Expired in December of the previous year.
	require.NoError(t, repo.Upsert(ctx, testSubscriber(10, models.LabelPremium, time.Date(2025, 12, 20, 10, 0, 0, 0, time.Local))))
	// Active until February.
	require.NoError(t, repo.Upsert(ctx, testSubscriber(11, models.LabelStandard, time.Date(2026, 2, 10, 10, 0, 0, 0, time.Local))))
	// Lapsed but resting; never reported as expired.
	require.NoError(t, repo.Upsert(ctx, testSubscriber(12, models.LabelBasic, time.Date(2025, 11, 1, 10, 0, 0, 0, time.Local))))

	expired, err := repo.ListExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, int64(10), expired[0].UserID)
}

func TestListPaidExcludesResting(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)

	require.NoError(t, repo.Upsert(ctx, testSubscriber(20, models.LabelBasic, end)))
	require.NoError(t, repo.Upsert(ctx, testSubscriber(21, models.LabelDay, end)))
	require.NoError(t, repo.Upsert(ctx, testSubscriber(22, models.LabelPremium, end)))

	paid, err := repo.ListPaid(ctx)
	require.NoError(t, err)
	assert.Len(t, paid, 2)
	for _, sub := range paid {
		assert.True(t, sub.Label.Paid())
	}
}

func TestDecodeSkipsMalformedRows(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)

	require.NoError(t, repo.Upsert(ctx, testSubscriber(30, models.LabelDay, end)))
	require.NoError(t, repo.db.Exec(
		`INSERT INTO users (user_id, first_name, username, username_at, label, subscription_start, subscription_end, updated_at)
		 VALUES (31, 'Broken', 'b', '@b', 'premium_user', 'garbage', 'garbage', 'garbage')`).Error)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(30), all[0].UserID)
}

func TestCountByLabel(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)

	require.NoError(t, repo.Upsert(ctx, testSubscriber(40, models.LabelBasic, end)))
	require.NoError(t, repo.Upsert(ctx, testSubscriber(41, models.LabelBasic, end)))
	require.NoError(t, repo.Upsert(ctx, testSubscriber(42, models.LabelPremium, end)))

	counts, err := repo.CountByLabel(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.LabelBasic])
	assert.Equal(t, int64(1), counts[models.LabelPremium])
}
