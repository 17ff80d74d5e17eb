package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

// ----- Fake repo -----

type fakeSessionRepo struct {
	dbSessionRepo

	// links already taken; CreateSession reports ErrDuplicate for them
	taken     map[string]bool
	tried     []string
	createErr error
}

func (r *fakeSessionRepo) CreateSession(ctx context.Context, db *gorm.DB, ownerID, title string, description *string, link string) (*domain.BookingSession, error) {
	r.tried = append(r.tried, link)
	if r.createErr != nil {
		return nil, r.createErr
	}
	if r.taken[link] {
		return nil, repo.ErrDuplicate
	}
	return &domain.BookingSession{ID: "s-" + link, OwnerID: ownerID, Title: title, Description: description, PublicLink: link}, nil
}

func seqLinks(links ...string) func() string {
	i := 0
	return func() string {
		l := links[i%len(links)]
		i++
		return l
	}
}

// ----- Tests -----

func TestNewPublicLink_ShapeAndDistinct(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{12}$`)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		l := NewPublicLink()
		if !re.MatchString(l) {
			t.Fatalf("link %q is not 12 lowercase hex chars", l)
		}
		if seen[l] {
			t.Fatalf("duplicate link %q", l)
		}
		seen[l] = true
	}
}

func TestNewSessionService_Defaults(t *testing.T) {
	r := &fakeSessionRepo{}
	s := NewSessionService(nil, r)
	if s.Repo != r || s.LinkGen == nil || s.LinkRetries != 5 || s.TitleMaxLen != domain.TitleMaxLen {
		t.Fatalf("unexpected defaults: %+v", s)
	}
}

func TestSessionCreate_RetriesOnLinkCollision(t *testing.T) {
	r := &fakeSessionRepo{taken: map[string]bool{"aaaaaaaaaaaa": true, "bbbbbbbbbbbb": true}}
	s := NewSessionService(nil, r)
	s.LinkGen = seqLinks("aaaaaaaaaaaa", "bbbbbbbbbbbb", "cccccccccccc")

	sess, err := s.Create(context.Background(), "u1", "Demo", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.PublicLink != "cccccccccccc" || len(r.tried) != 3 {
		t.Fatalf("expected third link after two collisions, got %q (tried %v)", sess.PublicLink, r.tried)
	}
}

func TestSessionCreate_ExhaustedRetriesIsConflict(t *testing.T) {
	r := &fakeSessionRepo{taken: map[string]bool{"aaaaaaaaaaaa": true}}
	s := NewSessionService(nil, r)
	s.LinkGen = seqLinks("aaaaaaaaaaaa")
	s.LinkRetries = 2

	if _, err := s.Create(context.Background(), "u1", "Demo", nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v; want ErrConflict", err)
	}
	if len(r.tried) != 3 {
		t.Fatalf("expected 1 + 2 retries, got %d attempts", len(r.tried))
	}
}

func TestSessionCreate_OtherErrorsPassThrough(t *testing.T) {
	sentinel := errors.New("db down")
	r := &fakeSessionRepo{createErr: sentinel}
	s := NewSessionService(nil, r)
	if _, err := s.Create(context.Background(), "u1", "Demo", nil); !errors.Is(err, sentinel) {
		t.Fatalf("err = %v; want sentinel", err)
	}
	if len(r.tried) != 1 {
		t.Fatalf("non-duplicate errors must not retry, tried %d", len(r.tried))
	}
}

func TestSessionCreate_TitleRules(t *testing.T) {
	r := &fakeSessionRepo{}
	s := NewSessionService(nil, r)

	if _, err := s.Create(context.Background(), "u1", "   \t ", nil); !errors.Is(err, ErrInvalidTitle) {
		t.Fatalf("blank title err = %v; want ErrInvalidTitle", err)
	}

	sess, err := s.Create(context.Background(), "u1", "  Team   sync \n planning ", strp("   "))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.Title != "Team sync planning" {
		t.Fatalf("title = %q; want collapsed whitespace", sess.Title)
	}
	if sess.Description != nil {
		t.Fatalf("blank description should become nil, got %q", *sess.Description)
	}

	long := strings.Repeat("é", 100)
	sess, err = s.Create(context.Background(), "u1", long, nil)
	if err != nil {
		t.Fatalf("Create long: %v", err)
	}
	if got := utf8.RuneCountInString(sess.Title); got != domain.TitleMaxLen {
		t.Fatalf("title runes = %d; want %d", got, domain.TitleMaxLen)
	}
}

func TestSessionCreate_DistinctLinksAgainstDB(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.sessions.Create(ctx, "u1", "One", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := f.sessions.Create(ctx, "u1", "Two", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.PublicLink == b.PublicLink || len(a.PublicLink) != domain.PublicLinkLen {
		t.Fatalf("links not distinct 12-char tokens: %q %q", a.PublicLink, b.PublicLink)
	}
}

func TestSessionUpdate_KeepsLinkAndMapsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.sessions.Create(ctx, "u1", "Demo", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	up, err := f.sessions.Update(ctx, "u1", sess.ID, "Renamed", strp("about"))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if up.Title != "Renamed" || up.PublicLink != sess.PublicLink {
		t.Fatalf("unexpected update result: %+v (link was %q)", up, sess.PublicLink)
	}

	if _, err := f.sessions.Update(ctx, "u2", sess.ID, "Hijack", nil); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("foreign update err = %v; want ErrSessionNotFound", err)
	}
	if _, err := f.sessions.Update(ctx, "u1", sess.ID, " ", nil); !errors.Is(err, ErrInvalidTitle) {
		t.Fatalf("blank update err = %v; want ErrInvalidTitle", err)
	}
}

func TestSessionGetByLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.sessions.Create(ctx, "u1", "Demo", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := f.sessions.GetByLink(ctx, strings.ToUpper(sess.PublicLink))
	if err != nil || got.ID != sess.ID {
		t.Fatalf("GetByLink: got=%+v err=%v", got, err)
	}
	for _, bad := range []string{"", "short", "ffffffffffff"} {
		if _, err := f.sessions.GetByLink(ctx, bad); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("GetByLink(%q) err = %v; want ErrSessionNotFound", bad, err)
		}
	}
}

func TestSessionListAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C"} {
		if _, err := f.sessions.Create(ctx, "u1", title, nil); err != nil {
			t.Fatalf("Create %s: %v", title, err)
		}
	}
	items, total, err := f.sessions.List(ctx, "u1", 0, 2)
	if err != nil || total != 3 || len(items) != 2 {
		t.Fatalf("List: items=%d total=%d err=%v", len(items), total, err)
	}

	empty, total, err := f.sessions.List(ctx, "nobody", 1, 10)
	if err != nil || total != 0 || empty == nil || len(empty) != 0 {
		t.Fatalf("List(nobody): %v %d %v", empty, total, err)
	}

	if err := f.sessions.Delete(ctx, "u1", items[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := f.sessions.Delete(ctx, "u1", items[0].ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second Delete err = %v; want ErrSessionNotFound", err)
	}
}
