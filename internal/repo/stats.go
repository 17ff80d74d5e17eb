// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for the
// owner dashboard and for conditional responses (ETag generation) in the
// HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

// DashboardCounts holds the owner's totals shown on the dashboard.
type DashboardCounts struct {
	Sessions int64 `json:"session_count"`
	Slots    int64 `json:"slots_count"`
	Booked   int64 `json:"booking_count"`
}

// OwnerCounts returns session, slot, and booked-slot totals for ownerID.
func OwnerCounts(ctx context.Context, db *gorm.DB, ownerID string) (DashboardCounts, error) {
	var out DashboardCounts
	var err error
	if out.Sessions, err = CountSessions(ctx, db, ownerID); err != nil {
		return DashboardCounts{}, err
	}
	if out.Slots, err = CountSlots(ctx, db, SlotFilter{OwnerID: ownerID}); err != nil {
		return DashboardCounts{}, err
	}
	booked := true
	if out.Booked, err = CountSlots(ctx, db, SlotFilter{OwnerID: ownerID, Booked: &booked}); err != nil {
		return DashboardCounts{}, err
	}
	return out, nil
}

// SlotsStats returns aggregate metadata for an owner's slots: the total
// number of rows and the maximum UpdatedAt timestamp among those rows.
// When the owner has no slots, count is 0 and maxUpdatedAt is nil.
func SlotsStats(ctx context.Context, db *gorm.DB, ownerID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.TimeSlot{}).Where("owner_id = ?", ownerID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// SessionsStats is the BookingSession counterpart of SlotsStats.
func SessionsStats(ctx context.Context, db *gorm.DB, ownerID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.BookingSession{}).Where("owner_id = ?", ownerID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
