// Package services – SessionService
//
// This file implements the SessionService, which manages the lifecycle of
// booking sessions. It normalizes titles, assigns each session its public
// link exactly once, enforces ownership rules, and coordinates repository
// operations for creating, listing (with pagination), updating, and deleting
// sessions.
//
// Service-level errors (e.g., ErrSessionNotFound) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

// SessionRepo defines the repository contract required by SessionService.
// Implementations are responsible for persistence of session rows.
type SessionRepo interface {
	// CreateSession inserts a new session; it returns repo.ErrDuplicate when
	// the public link is already taken.
	CreateSession(ctx context.Context, db *gorm.DB, ownerID, title string, description *string, link string) (*domain.BookingSession, error)

	// CountSessions returns the total number of sessions for pagination.
	CountSessions(ctx context.Context, db *gorm.DB, ownerID string) (int64, error)

	// ListSessionsPage returns a page of the owner's sessions, newest first.
	ListSessionsPage(ctx context.Context, db *gorm.DB, ownerID string, offset, limit int) ([]domain.BookingSession, error)

	// GetSession fetches a session by ID ensuring it belongs to the owner.
	GetSession(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.BookingSession, error)

	// GetSessionByLink fetches a session by its public link.
	GetSessionByLink(ctx context.Context, db *gorm.DB, link string) (*domain.BookingSession, error)

	// UpdateSession changes title and description (never the public link).
	UpdateSession(ctx context.Context, db *gorm.DB, id, ownerID, title string, description *string) error

	// DeleteSession removes a session together with its slots.
	DeleteSession(ctx context.Context, db *gorm.DB, id, ownerID string) error
}

// SessionService provides session-level operations. It enforces title rules,
// ownership constraints, and public link uniqueness.
type SessionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the session repository used by this service.
	Repo SessionRepo

	// LinkGen produces candidate public links. Defaults to NewPublicLink.
	LinkGen func() string
	// LinkRetries is how many extra links are tried after a collision.
	LinkRetries int
	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
}

// NewSessionService constructs a SessionService with sane defaults.
func NewSessionService(db *gorm.DB, r SessionRepo) *SessionService {
	return &SessionService{
		DB:          db,
		Repo:        r,
		LinkGen:     NewPublicLink,
		LinkRetries: 5,
		TitleMaxLen: domain.TitleMaxLen,
	}
}

// NewPublicLink returns the first 12 hex characters of a random (v4) UUID.
func NewPublicLink() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:domain.PublicLinkLen]
}

// Create inserts a new session owned by ownerID. The public link is generated
// here and never changes afterwards; on a collision a fresh link is tried up
// to LinkRetries more times before ErrConflict is returned.
func (s *SessionService) Create(ctx context.Context, ownerID, title string, description *string) (*domain.BookingSession, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.String("user.id", ownerID)))
	defer span.End()

	title = s.clip(normalizeTitle(title))
	if title == "" {
		return nil, ErrInvalidTitle
	}
	description = normalizeOptional(description)

	gen := s.LinkGen
	if gen == nil {
		gen = NewPublicLink
	}
	for attempt := 0; attempt <= s.LinkRetries; attempt++ {
		sess, err := s.Repo.CreateSession(ctx, s.DB, ownerID, title, description, gen())
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			return nil, err
		}
		linkCollisions.Inc()
	}
	return nil, ErrConflict
}

// List returns a page of sessions for an owner (newest first) and the total.
// It applies defaults for invalid page/pageSize.
func (s *SessionService) List(ctx context.Context, ownerID string, page, pageSize int) ([]domain.BookingSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountSessions(ctx, s.DB, ownerID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.BookingSession{}, 0, nil
	}

	items, err := s.Repo.ListSessionsPage(ctx, s.DB, ownerID, offset, pageSize)
	return items, total, err
}

// Get returns one of the owner's sessions.
func (s *SessionService) Get(ctx context.Context, ownerID, id string) (*domain.BookingSession, error) {
	sess, err := s.Repo.GetSession(ctx, s.DB, id, ownerID)
	if err != nil {
		return nil, mapNotFound(err, ErrSessionNotFound)
	}
	return sess, nil
}

// GetByLink resolves a public link to its session.
func (s *SessionService) GetByLink(ctx context.Context, link string) (*domain.BookingSession, error) {
	link = strings.ToLower(strings.TrimSpace(link))
	if len(link) != domain.PublicLinkLen {
		return nil, ErrSessionNotFound
	}
	sess, err := s.Repo.GetSessionByLink(ctx, s.DB, link)
	if err != nil {
		return nil, mapNotFound(err, ErrSessionNotFound)
	}
	return sess, nil
}

// Update changes the title and description of an owner's session and
// returns the stored result. The public link is left untouched.
func (s *SessionService) Update(ctx context.Context, ownerID, id, title string, description *string) (*domain.BookingSession, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "Update", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("user.id", ownerID),
	))
	defer span.End()

	title = s.clip(normalizeTitle(title))
	if title == "" {
		return nil, ErrInvalidTitle
	}
	if err := s.Repo.UpdateSession(ctx, s.DB, id, ownerID, title, normalizeOptional(description)); err != nil {
		return nil, mapNotFound(err, ErrSessionNotFound)
	}
	return s.Get(ctx, ownerID, id)
}

// Delete removes an owner's session and all of its slots.
func (s *SessionService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.Repo.DeleteSession(ctx, s.DB, id, ownerID); err != nil {
		return mapNotFound(err, ErrSessionNotFound)
	}
	return nil
}

// clip truncates a title to the configured maximum rune length.
func (s *SessionService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return strings.TrimSpace(string([]rune(title)[:s.TitleMaxLen]))
	}
	return title
}

// normalizeTitle applies NFC, trims whitespace, and collapses runs of spaces.
func normalizeTitle(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(norm.NFC.String(s)), " ")
}

// normalizeOptional trims p and maps blank to nil.
func normalizeOptional(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// mapNotFound replaces repository not-found errors with the given service
// sentinel and passes everything else through.
func mapNotFound(err, notFound error) error {
	if errors.Is(err, repo.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
