package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgate-bot/internal/features/subscriber/models"
	"subgate-bot/internal/features/subscriber/repository"
)

// fakeRepo is a map-backed SubscriberRepository for service tests.
type fakeRepo struct {
	subs map[int64]*models.Subscriber

	setLabelErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{subs: make(map[int64]*models.Subscriber)}
}

func (f *fakeRepo) Get(_ context.Context, userID int64) (*models.Subscriber, error) {
	sub, ok := f.subs[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeRepo) Upsert(_ context.Context, sub *models.Subscriber) error {
	cp := *sub
	f.subs[sub.UserID] = &cp
	return nil
}

func (f *fakeRepo) UpdateProfile(_ context.Context, userID int64, firstName, username, usernameAt string) error {
	sub, ok := f.subs[userID]
	if !ok {
		return repository.ErrNotFound
	}
	sub.FirstName, sub.Username, sub.UsernameAt = firstName, username, usernameAt
	return nil
}

func (f *fakeRepo) SetLabel(_ context.Context, userID int64, label models.Label) error {
	if f.setLabelErr != nil {
		return f.setLabelErr
	}
	sub, ok := f.subs[userID]
	if !ok {
		return repository.ErrNotFound
	}
	sub.Label = label
	return nil
}

func (f *fakeRepo) SetSubscriptionEnd(_ context.Context, userID int64, end time.Time) error {
	sub, ok := f.subs[userID]
	if !ok {
		return repository.ErrNotFound
	}
	sub.SubscriptionEnd = end
	return nil
}

func (f *fakeRepo) ListAll(_ context.Context) ([]models.Subscriber, error) {
	out := make([]models.Subscriber, 0, len(f.subs))
	for _, sub := range f.subs {
		out = append(out, *sub)
	}
	return out, nil
}

func (f *fakeRepo) ListPaid(_ context.Context) ([]models.Subscriber, error) {
	out := make([]models.Subscriber, 0, len(f.subs))
	for _, sub := range f.subs {
		if sub.Label != models.LabelBasic {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListExpired(_ context.Context, now time.Time) ([]models.Subscriber, error) {
	out := make([]models.Subscriber, 0)
	for _, sub := range f.subs {
		if sub.Label != models.LabelBasic && sub.SubscriptionEnd.Before(now) {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountByLabel(_ context.Context) (map[models.Label]int64, error) {
	counts := make(map[models.Label]int64)
	for _, sub := range f.subs {
		counts[sub.Label]++
	}
	return counts, nil
}

var _ repository.SubscriberRepository = (*fakeRepo)(nil)

func TestUsernameAt(t *testing.T) {
	assert.Equal(t, "@alex", UsernameAt("alex"))
	assert.Equal(t, "", UsernameAt(""))
	assert.Equal(t, "", UsernameAt("Unknown"))
}

func TestRegister(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo)
	ctx := context.Background()

	t.Run("first contact creates resting record", func(t *testing.T) {
		sub, err := svc.Register(ctx, 1, "Alex", "alex")
		require.NoError(t, err)
		assert.Equal(t, models.LabelBasic, sub.Label)
		assert.Equal(t, "@alex", sub.UsernameAt)
		// Degenerate window: nothing to expire later.
		assert.True(t, sub.SubscriptionEnd.Equal(sub.SubscriptionStart))
	})

	t.Run("repeat contact refreshes profile only", func(t *testing.T) {
		end := time.Now().Add(48 * time.Hour)
		repo.subs[1].Label = models.LabelStandard
		repo.subs[1].SubscriptionEnd = end

		sub, err := svc.Register(ctx, 1, "Alexander", "newalex")
		require.NoError(t, err)
		assert.Equal(t, "Alexander", sub.FirstName)
		assert.Equal(t, "@newalex", sub.UsernameAt)

		stored := repo.subs[1]
		assert.Equal(t, models.LabelStandard, stored.Label)
		assert.True(t, stored.SubscriptionEnd.Equal(end))
	})
}

func TestPromote(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo)
	ctx := context.Background()

	t.Run("fresh window from now", func(t *testing.T) {
		before := time.Now()
		sub, err := svc.Promote(ctx, 2, "alex", models.LabelPremium, 30*24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, models.LabelPremium, sub.Label)
		assert.WithinDuration(t, before.Add(30*24*time.Hour), sub.SubscriptionEnd, time.Second)
	})

	t.Run("keeps known first name", func(t *testing.T) {
		repo.subs[2].FirstName = "Alex"
		sub, err := svc.Promote(ctx, 2, "", models.LabelDay, 24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, "Alex", sub.FirstName)
		assert.Equal(t, "alex", sub.Username)
	})

	t.Run("rejects non-paid label", func(t *testing.T) {
		_, err := svc.Promote(ctx, 3, "x", models.LabelBasic, time.Hour)
		assert.Error(t, err)
	})
}

func TestExtend(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo)
	ctx := context.Background()

	t.Run("active subscription extends additively", func(t *testing.T) {
		end := time.Now().Add(48 * time.Hour)
		repo.subs[5] = &models.Subscriber{UserID: 5, Label: models.LabelStandard, SubscriptionEnd: end}

		newEnd, err := svc.Extend(ctx, 5, 7*24*time.Hour)
		require.NoError(t, err)
		assert.True(t, newEnd.Equal(end.Add(7*24*time.Hour)))
	})

	t.Run("lapsed subscription restarts from now", func(t *testing.T) {
		repo.subs[6] = &models.Subscriber{UserID: 6, Label: models.LabelDay, SubscriptionEnd: time.Now().Add(-72 * time.Hour)}

		before := time.Now()
		newEnd, err := svc.Extend(ctx, 6, 24*time.Hour)
		require.NoError(t, err)
		assert.WithinDuration(t, before.Add(24*time.Hour), newEnd, time.Second)
	})

	t.Run("unknown subscriber", func(t *testing.T) {
		_, err := svc.Extend(ctx, 404, time.Hour)
		assert.ErrorIs(t, err, ErrSubscriberNotFound)
	})
}

func TestCancel(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo)
	ctx := context.Background()

	repo.subs[7] = &models.Subscriber{UserID: 7, Label: models.LabelPremium, SubscriptionEnd: time.Now().Add(time.Hour)}

	require.NoError(t, svc.Cancel(ctx, 7))
	stored := repo.subs[7]
	assert.Equal(t, models.LabelBasic, stored.Label)
	assert.False(t, stored.SubscriptionEnd.After(time.Now()))

	assert.ErrorIs(t, svc.Cancel(ctx, 404), ErrSubscriberNotFound)
}
