package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

func newNotifyDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:notify_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type sent struct {
	to, text, format string
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakeSender) Send(ctx context.Context, to, text, format string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("send without deadline")
	}
	f.msgs = append(f.msgs, sent{to: to, text: text, format: format})
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func strp(s string) *string { return &s }

// seedOwner creates a session and, when telegramID is non-empty, a profile.
func seedOwner(t *testing.T, db *gorm.DB, owner, telegramID string) *domain.BookingSession {
	t.Helper()
	ctx := context.Background()
	sess, err := repo.CreateSession(ctx, db, owner, "Demo", nil, uuid.NewString()[:8]+"abcd")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if telegramID != "" {
		if _, err := repo.EnsureProfile(ctx, db, owner); err != nil {
			t.Fatalf("EnsureProfile: %v", err)
		}
		if err := repo.UpdateProfile(ctx, db, owner, &telegramID, nil); err != nil {
			t.Fatalf("UpdateProfile: %v", err)
		}
	}
	return sess
}

func seedBooked(t *testing.T, db *gorm.DB, owner string, sessionID *string, start time.Time, guest string) *domain.TimeSlot {
	t.Helper()
	bookedAt := start.Add(-48 * time.Hour)
	slot := &domain.TimeSlot{
		OwnerID:   owner,
		SessionID: sessionID,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		IsBooked:  true,
		GuestName: strp(guest),
		BookedAt:  &bookedAt,
	}
	if err := repo.CreateSlot(context.Background(), db, slot); err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}
	return slot
}

func createSlot(db *gorm.DB, slot *domain.TimeSlot) error {
	return repo.CreateSlot(context.Background(), db, slot)
}

func loadSlot(db *gorm.DB, id string) (*domain.TimeSlot, error) {
	return repo.GetSlot(context.Background(), db, id)
}
