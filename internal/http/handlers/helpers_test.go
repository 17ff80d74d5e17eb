package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/http/middleware"
	"github.com/tbourn/go-booking-backend/internal/repo"
	"github.com/tbourn/go-booking-backend/internal/services"
)

// ---------- test DB + repo shim ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	// Enforce FKs and migrate schemas
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// testSessionRepo implements services.SessionRepo using the repo package (like router.go).
type testSessionRepo struct{}

func (testSessionRepo) CreateSession(ctx context.Context, db *gorm.DB, ownerID, title string, description *string, link string) (*domain.BookingSession, error) {
	return repo.CreateSession(ctx, db, ownerID, title, description, link)
}

func (testSessionRepo) CountSessions(ctx context.Context, db *gorm.DB, ownerID string) (int64, error) {
	return repo.CountSessions(ctx, db, ownerID)
}

func (testSessionRepo) ListSessionsPage(ctx context.Context, db *gorm.DB, ownerID string, offset, limit int) ([]domain.BookingSession, error) {
	return repo.ListSessionsPage(ctx, db, ownerID, offset, limit)
}

func (testSessionRepo) GetSession(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.BookingSession, error) {
	return repo.GetSession(ctx, db, id, ownerID)
}

func (testSessionRepo) GetSessionByLink(ctx context.Context, db *gorm.DB, link string) (*domain.BookingSession, error) {
	return repo.GetSessionByLink(ctx, db, link)
}

func (testSessionRepo) UpdateSession(ctx context.Context, db *gorm.DB, id, ownerID, title string, description *string) error {
	return repo.UpdateSession(ctx, db, id, ownerID, title, description)
}

func (testSessionRepo) DeleteSession(ctx context.Context, db *gorm.DB, id, ownerID string) error {
	return repo.DeleteSession(ctx, db, id, ownerID)
}

// realHandlers wires handlers to DB-backed services.
func realHandlers(t *testing.T) (*Handlers, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	sessions := services.NewSessionService(db, testSessionRepo{})
	slots := services.NewSlotService(db, sessions, nil)
	return New(sessions, slots, &services.ProfileService{DB: db}), db
}

// newRouter mounts every handler behind the identity and idempotency
// middleware, mirroring the production route table.
func newRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Identity())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{ScopeParam: "slot_id"}, nil))

	r.GET("/dashboard", h.Dashboard)
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions", h.ListSessions)
	r.GET("/sessions/:id", h.GetSession)
	r.PUT("/sessions/:id", h.UpdateSession)
	r.DELETE("/sessions/:id", h.DeleteSession)
	r.POST("/slots", h.CreateSlot)
	r.GET("/slots", h.ListSlots)
	r.DELETE("/slots/:id", h.DeleteSlot)
	r.POST("/slots/:id/cancel", h.CancelSlot)
	r.GET("/profile", h.GetProfile)
	r.PUT("/profile", h.UpdateProfile)
	r.GET("/public/:link", h.GetPublicSession)
	r.POST("/public/:link/slots/:slot_id/book", h.BookSlot)
	return r
}

// serve issues one request; hdr is a flat list of header name/value pairs.
func serve(r http.Handler, method, path, user, body string, hdr ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// seedSessionWithSlot stores a session for owner and one free future slot.
func seedSessionWithSlot(t *testing.T, db *gorm.DB, owner string) (*domain.BookingSession, *domain.TimeSlot) {
	t.Helper()
	ctx := context.Background()
	sess, err := repo.CreateSession(ctx, db, owner, "Consultations", nil, services.NewPublicLink())
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Minute)
	slot := &domain.TimeSlot{
		OwnerID:   owner,
		SessionID: &sess.ID,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
	}
	if err := repo.CreateSlot(ctx, db, slot); err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	return sess, slot
}

// ---------- flexible stubs ----------

type stubSessionSvc struct {
	create func(context.Context, string, string, *string) (*domain.BookingSession, error)
	list   func(context.Context, string, int, int) ([]domain.BookingSession, int64, error)
	get    func(context.Context, string, string) (*domain.BookingSession, error)
}

func (s stubSessionSvc) Create(ctx context.Context, owner, title string, desc *string) (*domain.BookingSession, error) {
	if s.create != nil {
		return s.create(ctx, owner, title, desc)
	}
	return &domain.BookingSession{ID: "s", OwnerID: owner, Title: title}, nil
}

func (s stubSessionSvc) List(ctx context.Context, owner string, p, ps int) ([]domain.BookingSession, int64, error) {
	if s.list != nil {
		return s.list(ctx, owner, p, ps)
	}
	return nil, 0, nil
}

func (s stubSessionSvc) Get(ctx context.Context, owner, id string) (*domain.BookingSession, error) {
	if s.get != nil {
		return s.get(ctx, owner, id)
	}
	return nil, services.ErrSessionNotFound
}

func (stubSessionSvc) Update(context.Context, string, string, string, *string) (*domain.BookingSession, error) {
	return nil, services.ErrSessionNotFound
}

func (stubSessionSvc) Delete(context.Context, string, string) error {
	return services.ErrSessionNotFound
}

type stubSlotSvc struct {
	list func(context.Context, string, services.SlotQuery, int, int) ([]domain.TimeSlot, int64, error)
	book func(context.Context, string, string, string, string) (*domain.TimeSlot, error)
}

func (stubSlotSvc) Create(context.Context, string, services.SlotInput) (*domain.TimeSlot, error) {
	return nil, services.ErrSessionNotFound
}

func (s stubSlotSvc) List(ctx context.Context, owner string, q services.SlotQuery, p, ps int) ([]domain.TimeSlot, int64, error) {
	if s.list != nil {
		return s.list(ctx, owner, q, p, ps)
	}
	return nil, 0, nil
}

func (stubSlotSvc) Delete(context.Context, string, string) error { return services.ErrSlotNotFound }

func (stubSlotSvc) Cancel(context.Context, string, string) (*domain.TimeSlot, error) {
	return nil, services.ErrConflict
}

func (s stubSlotSvc) Book(ctx context.Context, link, slotID, user, guest string) (*domain.TimeSlot, error) {
	if s.book != nil {
		return s.book(ctx, link, slotID, user, guest)
	}
	return nil, services.ErrSlotNotFound
}

func (stubSlotSvc) ListFree(context.Context, string) (*domain.BookingSession, []domain.TimeSlot, error) {
	return nil, nil, services.ErrSessionNotFound
}

func (stubSlotSvc) Dashboard(context.Context, string) (repo.DashboardCounts, error) {
	return repo.DashboardCounts{}, fmt.Errorf("db down")
}

type stubProfileSvc struct{}

func (stubProfileSvc) Ensure(_ context.Context, user string) (*domain.UserProfile, error) {
	return &domain.UserProfile{UserID: user}, nil
}

func (stubProfileSvc) Update(context.Context, string, *string, *string) (*domain.UserProfile, error) {
	return nil, services.ErrInvalidTelegramID
}
