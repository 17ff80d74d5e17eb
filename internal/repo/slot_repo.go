// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the TimeSlot
// model.
//
// Writes that change booking state go through UpdateSlotVersioned, a
// conditional update on (id, version). Zero affected rows is reported as
// ErrStale, which the service layer turns into a conflict.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

// SlotFilter narrows ListSlots/CountSlots. Zero values mean "no constraint".
type SlotFilter struct {
	OwnerID   string
	SessionID *string
	Booked    *bool
	From      *time.Time // start_time >= From
	To        *time.Time // start_time <  To
}

func (f SlotFilter) apply(q *gorm.DB) *gorm.DB {
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.SessionID != nil {
		q = q.Where("session_id = ?", *f.SessionID)
	}
	if f.Booked != nil {
		q = q.Where("is_booked = ?", *f.Booked)
	}
	if f.From != nil {
		q = q.Where("start_time >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("start_time < ?", *f.To)
	}
	return q
}

// CreateSlot inserts slot, assigning an ID when empty and starting the
// version counter at 1. The caller is expected to have normalized it.
func CreateSlot(ctx context.Context, db *gorm.DB, slot *domain.TimeSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now
	slot.Version = 1
	return db.WithContext(ctx).Create(slot).Error
}

// GetSlot fetches a slot by ID regardless of owner.
func GetSlot(ctx context.Context, db *gorm.DB, id string) (*domain.TimeSlot, error) {
	var s domain.TimeSlot
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetOwnedSlot fetches a slot by ID that belongs to ownerID.
func GetOwnedSlot(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.TimeSlot, error) {
	var s domain.TimeSlot
	err := db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSessionSlot fetches a slot by ID within sessionID.
func GetSessionSlot(ctx context.Context, db *gorm.DB, id, sessionID string) (*domain.TimeSlot, error) {
	var s domain.TimeSlot
	err := db.WithContext(ctx).
		Where("id = ? AND session_id = ?", id, sessionID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountSlots returns the number of slots matching f.
func CountSlots(ctx context.Context, db *gorm.DB, f SlotFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.TimeSlot{})).Count(&total).Error
	return total, err
}

// ListSlots returns a page of slots matching f, latest start first.
// A limit <= 0 returns all rows.
func ListSlots(ctx context.Context, db *gorm.DB, f SlotFilter, offset, limit int) ([]domain.TimeSlot, error) {
	var out []domain.TimeSlot
	q := f.apply(db.WithContext(ctx)).Order("start_time desc, id asc")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ListFreeSlots returns unbooked slots of sessionID that start after now,
// earliest first.
func ListFreeSlots(ctx context.Context, db *gorm.DB, sessionID string, now time.Time) ([]domain.TimeSlot, error) {
	var out []domain.TimeSlot
	err := db.WithContext(ctx).
		Where("session_id = ? AND is_booked = ? AND start_time > ?", sessionID, false, now).
		Order("start_time asc, id asc").
		Find(&out).Error
	return out, err
}

// ListBookedBetween returns booked slots whose start lies in [from, to],
// earliest first. The session is preloaded for message formatting.
func ListBookedBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.TimeSlot, error) {
	var out []domain.TimeSlot
	err := db.WithContext(ctx).
		Preload("Session").
		Where("is_booked = ? AND start_time >= ? AND start_time <= ?", true, from, to).
		Order("start_time asc, id asc").
		Find(&out).Error
	return out, err
}

// UpdateSlotVersioned writes the booking and time fields of slot only if
// the stored version still equals slot.Version. On success the version is
// bumped in both the row and slot. ErrStale means another writer won.
func UpdateSlotVersioned(ctx context.Context, db *gorm.DB, slot *domain.TimeSlot) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.TimeSlot{}).
		Where("id = ? AND version = ?", slot.ID, slot.Version).
		Updates(map[string]any{
			"session_id": slot.SessionID,
			"start_time": slot.StartTime,
			"end_time":   slot.EndTime,
			"is_booked":  slot.IsBooked,
			"booked_by":  slot.BookedBy,
			"guest_name": slot.GuestName,
			"booked_at":  slot.BookedAt,
			"version":    slot.Version + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		if isWriteContention(res.Error) {
			return fmt.Errorf("%w: %v", ErrStale, res.Error)
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	slot.Version++
	slot.UpdatedAt = now
	return nil
}

// DeleteSlot removes a slot owned by ownerID.
func DeleteSlot(ctx context.Context, db *gorm.DB, id, ownerID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&domain.TimeSlot{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
