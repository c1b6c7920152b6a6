package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgate-bot/internal/features/subscriber/models"
	sqliterepo "subgate-bot/internal/features/subscriber/repository/sqlite"
	"subgate-bot/internal/platform/db"
)

func setupServer(t *testing.T) (*Server, *sqliterepo.Repository) {
	t.Helper()
	gdb, err := db.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		_ = sqlDB.Close()
	})
	repo, err := sqliterepo.New(gdb)
	require.NoError(t, err)
	return NewServer(":0", gdb, repo, false), repo
}

func TestHealthz(t *testing.T) {
	s, _ := setupServer(t)

	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStats(t *testing.T) {
	s, repo := setupServer(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Subscriber{
		UserID: 1, Label: models.LabelPremium,
		SubscriptionStart: time.Now().Add(-48 * time.Hour),
		SubscriptionEnd:   time.Now().Add(-time.Hour),
	}))
	require.NoError(t, repo.Upsert(ctx, &models.Subscriber{
		UserID: 2, Label: models.LabelBasic,
		SubscriptionStart: time.Now(),
		SubscriptionEnd:   time.Now(),
	}))

	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		ByLabel        map[string]int64 `json:"subscribers_by_label"`
		ExpiredPending int              `json:"expired_pending"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.ByLabel["premium_user"])
	assert.Equal(t, int64(1), body.ByLabel["basic_user"])
	assert.Equal(t, 1, body.ExpiredPending)
}
