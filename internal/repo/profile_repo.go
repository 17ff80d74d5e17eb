// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for UserProfile.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

// GetProfile fetches the profile of userID.
func GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// EnsureProfile returns the profile of userID, creating an empty one first
// if none exists. Concurrent callers converge on the same row through the
// unique index on user_id.
func EnsureProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.UserProfile, error) {
	now := time.Now().UTC()
	p := &domain.UserProfile{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(p).Error
	if err != nil {
		return nil, err
	}
	return GetProfile(ctx, db, userID)
}

// UpdateProfile sets the messaging endpoint fields of userID's profile.
func UpdateProfile(ctx context.Context, db *gorm.DB, userID string, telegramID, telegramUsername *string) error {
	res := db.WithContext(ctx).
		Model(&domain.UserProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"telegram_id":       telegramID,
			"telegram_username": telegramUsername,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
