// Package domain defines the persistence models for booking sessions, time
// slots, and owner profiles. These types are mapped with GORM and form the
// core data layer of the booking application.
package domain

import (
	"time"
)

// PublicLinkLen is the fixed length of a session's public link token.
const PublicLinkLen = 12

// TitleMaxLen caps session titles (in runes).
const TitleMaxLen = 60

// BookingSession is a named, publicly shareable group of time slots owned by
// a single user. Guests reach it only through PublicLink; the ID is never
// exposed on public routes.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - OwnerID: identifier of the owner; indexed for dashboard/list queries.
//   - Title: human-readable name (at most TitleMaxLen runes).
//   - Description: optional free text.
//   - PublicLink: 12-char lowercase hex token, unique, assigned once on create.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type BookingSession struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	OwnerID     string    `json:"owner_id"    gorm:"type:varchar(64);not null;index:idx_owner_sessions"`
	Title       string    `json:"title"       gorm:"type:varchar(60);not null"`
	Description *string   `json:"description,omitempty" gorm:"type:text"`
	PublicLink  string    `json:"public_link" gorm:"type:varchar(100);not null;uniqueIndex:ux_sessions_public_link"`
	CreatedAt   time.Time `json:"created_at"  gorm:"index:idx_owner_sessions"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for BookingSession.
func (BookingSession) TableName() string { return "booking_sessions" }

// TimeSlot is a single bookable interval. Booking state (IsBooked, BookedAt)
// is derived from BookedBy/GuestName by booking.Normalize before every write;
// callers never set it directly except to cancel.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - OwnerID: owner who receives booking notifications.
//   - SessionID: optional parent session; slots are cascade-deleted with it.
//   - StartTime / EndTime: the interval; EndTime must be after StartTime.
//   - IsBooked: derived booking flag.
//   - BookedBy: registered user that booked the slot, if any.
//   - GuestName: free-text guest name, if booked anonymously.
//   - BookedAt: first transition to booked; nil while free.
//   - Version: optimistic concurrency counter, bumped on every update.
//   - Session: FK association, ensures cascade delete/update.
type TimeSlot struct {
	ID        string     `json:"id"         gorm:"type:char(36);primaryKey"`
	OwnerID   string     `json:"owner_id"   gorm:"type:varchar(64);not null;index:idx_owner_slots,priority:1"`
	SessionID *string    `json:"session_id,omitempty" gorm:"type:char(36);index:idx_session_slots,priority:1"`
	StartTime time.Time  `json:"start_time" gorm:"not null;index:idx_owner_slots,priority:2;index:idx_session_slots,priority:3"`
	EndTime   time.Time  `json:"end_time"   gorm:"not null"`
	IsBooked  bool       `json:"is_booked"  gorm:"not null;default:false;index:idx_session_slots,priority:2"`
	BookedBy  *string    `json:"booked_by,omitempty"  gorm:"type:varchar(64);index"`
	GuestName *string    `json:"guest_name,omitempty" gorm:"type:varchar(255)"`
	BookedAt  *time.Time `json:"booked_at,omitempty"`
	Version   int64      `json:"version"    gorm:"not null;default:1"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Session *BookingSession `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for TimeSlot.
func (TimeSlot) TableName() string { return "time_slots" }

// Duration returns the length of the slot.
func (s TimeSlot) Duration() time.Duration { return s.EndTime.Sub(s.StartTime) }

// Booker returns the display identity of whoever booked the slot: the
// registered user id when present, otherwise the guest name.
func (s TimeSlot) Booker() string {
	if s.BookedBy != nil && *s.BookedBy != "" {
		return *s.BookedBy
	}
	if s.GuestName != nil {
		return *s.GuestName
	}
	return ""
}

// UserProfile extends an owner identity with the messaging endpoint used for
// notifications. One row per owner, created on first sight of the owner.
type UserProfile struct {
	ID               string    `json:"id"                gorm:"type:char(36);primaryKey"`
	UserID           string    `json:"user_id"           gorm:"type:varchar(64);not null;uniqueIndex:ux_profiles_user"`
	TelegramID       *string   `json:"telegram_id,omitempty"       gorm:"type:varchar(64);index"`
	TelegramUsername *string   `json:"telegram_username,omitempty" gorm:"type:varchar(64)"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserProfile.
func (UserProfile) TableName() string { return "user_profiles" }
