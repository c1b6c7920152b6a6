package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"subgate-bot/internal/common/logger"
	"subgate-bot/internal/features/subscriber/models"
	"subgate-bot/internal/features/subscriber/repository"
)

// timeLayout is the storage representation of every timestamp column:
// zero-padded day.month.year, no timezone. The format does not sort
// chronologically as a string, so all comparisons happen on parsed
// values, never in SQL.
const timeLayout = "02.01.2006 15:04:05"

// userRow mirrors the users table. Timestamp columns are stored as
// formatted strings; conversion happens only at this boundary.
type userRow struct {
	UserID            int64  `gorm:"column:user_id;primaryKey"`
	FirstName         string `gorm:"column:first_name"`
	Username          string `gorm:"column:username"`
	UsernameAt        string `gorm:"column:username_at"`
	Label             string `gorm:"column:label"`
	SubscriptionStart string `gorm:"column:subscription_start"`
	SubscriptionEnd   string `gorm:"column:subscription_end"`
	UpdatedAt         string `gorm:"column:updated_at"`
}

func (userRow) TableName() string { return "users" }

type Repository struct {
	db *gorm.DB
}

// New runs the additive schema migration and returns the repository.
// AutoMigrate only ever adds missing columns; existing rows are left
// untouched.
func New(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&userRow{}); err != nil {
		return nil, fmt.Errorf("migrate users table: %w", err)
	}
	return &Repository{db: db}, nil
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, s, time.Local)
}

func toRow(sub *models.Subscriber) userRow {
	return userRow{
		UserID:            sub.UserID,
		FirstName:         sub.FirstName,
		Username:          sub.Username,
		UsernameAt:        sub.UsernameAt,
		Label:             string(sub.Label),
		SubscriptionStart: formatTime(sub.SubscriptionStart),
		SubscriptionEnd:   formatTime(sub.SubscriptionEnd),
		UpdatedAt:         formatTime(time.Now()),
	}
}

func toSubscriber(row userRow) (*models.Subscriber, error) {
	start, err := parseTime(row.SubscriptionStart)
	if err != nil {
		return nil, fmt.Errorf("subscriber %d: bad subscription_start %q: %w", row.UserID, row.SubscriptionStart, err)
	}
	end, err := parseTime(row.SubscriptionEnd)
	if err != nil {
		return nil, fmt.Errorf("subscriber %d: bad subscription_end %q: %w", row.UserID, row.SubscriptionEnd, err)
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		// updated_at is advisory only; a bad value must not hide the row.
		updated = time.Time{}
	}
	return &models.Subscriber{
		UserID:            row.UserID,
		FirstName:         row.FirstName,
		Username:          row.Username,
		UsernameAt:        row.UsernameAt,
		Label:             models.Label(row.Label),
		SubscriptionStart: start,
		SubscriptionEnd:   end,
		UpdatedAt:         updated,
	}, nil
}

func (r *Repository) Get(ctx context.Context, userID int64) (*models.Subscriber, error) {
	var row userRow
	err := r.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber %d: %w", userID, err)
	}
	return toSubscriber(row)
}

func (r *Repository) Upsert(ctx context.Context, sub *models.Subscriber) error {
	row := toRow(sub)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert subscriber %d: %w", sub.UserID, err)
	}
	return nil
}

func (r *Repository) UpdateProfile(ctx context.Context, userID int64, firstName, username, usernameAt string) error {
	res := r.db.WithContext(ctx).Model(&userRow{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"first_name":  firstName,
		"username":    username,
		"username_at": usernameAt,
		"updated_at":  formatTime(time.Now()),
	})
	if res.Error != nil {
		return fmt.Errorf("update profile %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) SetLabel(ctx context.Context, userID int64, label models.Label) error {
	res := r.db.WithContext(ctx).Model(&userRow{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"label":      string(label),
		"updated_at": formatTime(time.Now()),
	})
	if res.Error != nil {
		return fmt.Errorf("set label %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) SetSubscriptionEnd(ctx context.Context, userID int64, end time.Time) error {
	res := r.db.WithContext(ctx).Model(&userRow{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"subscription_end": formatTime(end),
		"updated_at":       formatTime(time.Now()),
	})
	if res.Error != nil {
		return fmt.Errorf("set subscription end %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) ListAll(ctx context.Context) ([]models.Subscriber, error) {
	var rows []userRow
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	return r.decodeRows(rows), nil
}

func (r *Repository) ListPaid(ctx context.Context) ([]models.Subscriber, error) {
	var rows []userRow
	err := r.db.WithContext(ctx).Where("label <> ?", string(models.LabelBasic)).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list paid subscribers: %w", err)
	}
	return r.decodeRows(rows), nil
}

func (r *Repository) ListExpired(ctx context.Context, now time.Time) ([]models.Subscriber, error) {
	subs, err := r.ListPaid(ctx)
	if err != nil {
		return nil, err
	}
	expired := make([]models.Subscriber, 0, len(subs))
	for _, sub := range subs {
		if sub.SubscriptionEnd.Before(now) {
			expired = append(expired, sub)
		}
	}
	return expired, nil
}

func (r *Repository) CountByLabel(ctx context.Context) (map[models.Label]int64, error) {
	var rows []struct {
		Label string
		N     int64
	}
	err := r.db.WithContext(ctx).Model(&userRow{}).
		Select("label, count(*) AS n").Group("label").Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count by label: %w", err)
	}
	counts := make(map[models.Label]int64, len(rows))
	for _, row := range rows {
		counts[models.Label(row.Label)] = row.N
	}
	return counts, nil
}

// decodeRows converts rows to domain subscribers, skipping rows whose
// stored timestamps do not parse. A malformed row is logged and dropped
// from the result rather than failing the whole listing.
func (r *Repository) decodeRows(rows []userRow) []models.Subscriber {
	subs := make([]models.Subscriber, 0, len(rows))
	for _, row := range rows {
		sub, err := toSubscriber(row)
		if err != nil {
			logger.Warn().Err(err).Int64("user_id", row.UserID).Msg("Skipping subscriber with malformed timestamps")
			continue
		}
		subs = append(subs, *sub)
	}
	return subs
}
