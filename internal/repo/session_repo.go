// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// BookingSession model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a session is not found (or not owned by the caller), functions
//     return ErrNotFound.
//   - A public_link collision on insert is reported as ErrDuplicate so the
//     service layer can regenerate the token and retry.
//   - On other DB errors, the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

// CreateSession inserts a new session owned by ownerID with the given public
// link. The ID is a random UUID and timestamps are UTC.
func CreateSession(ctx context.Context, db *gorm.DB, ownerID, title string, description *string, link string) (*domain.BookingSession, error) {
	now := time.Now().UTC()
	s := &domain.BookingSession{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		PublicLink:  link,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return s, nil
}

// CountSessions returns the total number of sessions owned by ownerID.
func CountSessions(ctx context.Context, db *gorm.DB, ownerID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.BookingSession{}).
		Where("owner_id = ?", ownerID).
		Count(&total).Error
	return total, err
}

// ListSessionsPage returns a page of sessions for ownerID, newest first.
// The caller computes offset and limit (e.g., (page-1)*pageSize).
func ListSessionsPage(ctx context.Context, db *gorm.DB, ownerID string, offset, limit int) ([]domain.BookingSession, error) {
	var out []domain.BookingSession
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetSession fetches a session by ID and owner.
func GetSession(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.BookingSession, error) {
	var s domain.BookingSession
	err := db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSessionByLink fetches a session by its public link.
func GetSessionByLink(ctx context.Context, db *gorm.DB, link string) (*domain.BookingSession, error) {
	var s domain.BookingSession
	if err := db.WithContext(ctx).Where("public_link = ?", link).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// LatestSession returns the owner's most recently created session.
func LatestSession(ctx context.Context, db *gorm.DB, ownerID string) (*domain.BookingSession, error) {
	var s domain.BookingSession
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc, id desc").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSession changes title and description of a session owned by ownerID.
// The public link is never part of the update set.
func UpdateSession(ctx context.Context, db *gorm.DB, id, ownerID, title string, description *string) error {
	res := db.WithContext(ctx).
		Model(&domain.BookingSession{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(map[string]any{
			"title":       title,
			"description": description,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSession removes a session owned by ownerID together with its slots.
// Slots are deleted explicitly as well as by the FK cascade, since SQLite
// only enforces foreign keys on connections where the PRAGMA ran.
func DeleteSession(ctx context.Context, db *gorm.DB, id, ownerID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&domain.BookingSession{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("session_id = ?", id).Delete(&domain.TimeSlot{}).Error
	})
}
