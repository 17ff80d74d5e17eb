package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-booking-backend/internal/booking"
	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection serializes transactions, as a single SQLite writer would.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// dbSessionRepo proxies the repo package, as the HTTP layer's shim does.
type dbSessionRepo struct{}

func (dbSessionRepo) CreateSession(ctx context.Context, db *gorm.DB, ownerID, title string, description *string, link string) (*domain.BookingSession, error) {
	return repo.CreateSession(ctx, db, ownerID, title, description, link)
}
func (dbSessionRepo) CountSessions(ctx context.Context, db *gorm.DB, ownerID string) (int64, error) {
	return repo.CountSessions(ctx, db, ownerID)
}
func (dbSessionRepo) ListSessionsPage(ctx context.Context, db *gorm.DB, ownerID string, offset, limit int) ([]domain.BookingSession, error) {
	return repo.ListSessionsPage(ctx, db, ownerID, offset, limit)
}
func (dbSessionRepo) GetSession(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.BookingSession, error) {
	return repo.GetSession(ctx, db, id, ownerID)
}
func (dbSessionRepo) GetSessionByLink(ctx context.Context, db *gorm.DB, link string) (*domain.BookingSession, error) {
	return repo.GetSessionByLink(ctx, db, link)
}
func (dbSessionRepo) UpdateSession(ctx context.Context, db *gorm.DB, id, ownerID, title string, description *string) error {
	return repo.UpdateSession(ctx, db, id, ownerID, title, description)
}
func (dbSessionRepo) DeleteSession(ctx context.Context, db *gorm.DB, id, ownerID string) error {
	return repo.DeleteSession(ctx, db, id, ownerID)
}

// recordingObserver captures every transition it is told about.
type recordingObserver struct {
	mu    sync.Mutex
	calls []observed
}

type observed struct {
	old, new booking.State
	slot     domain.TimeSlot
}

func (r *recordingObserver) OnTransition(_ context.Context, old, new booking.State, slot domain.TimeSlot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, observed{old: old, new: new, slot: slot})
}

func (r *recordingObserver) transitions() []booking.Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]booking.Transition, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, booking.Classify(c.old, c.new))
	}
	return out
}

// fixedClock returns a Now func pinned to t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fixture struct {
	db       *gorm.DB
	sessions *SessionService
	slots    *SlotService
	obs      *recordingObserver
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, newSvcDB(t))
}

// newPooledFileDB opens a SQLite file the way the server does, with a
// multi-connection pool, so transactions really overlap.
func newPooledFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.Open(repo.DriverSQLite, filepath.Join(t.TempDir(), "booking.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newFixtureOn(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	now := time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)
	sessions := NewSessionService(db, dbSessionRepo{})
	obs := &recordingObserver{}
	slots := NewSlotService(db, sessions, obs)
	slots.Now = fixedClock(now)
	return &fixture{db: db, sessions: sessions, slots: slots, obs: obs, now: now}
}

func strp(s string) *string { return &s }
