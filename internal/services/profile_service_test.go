package services

import (
	"context"
	"errors"
	"testing"
)

func TestProfileService_EnsureAndUpdate(t *testing.T) {
	db := newSvcDB(t)
	s := &ProfileService{DB: db}
	ctx := context.Background()

	p, err := s.Ensure(ctx, "owner")
	if err != nil || p.UserID != "owner" {
		t.Fatalf("Ensure: %+v %v", p, err)
	}

	if _, err := s.Update(ctx, "owner", strp("not-a-number"), nil); !errors.Is(err, ErrInvalidTelegramID) {
		t.Fatalf("err = %v; want ErrInvalidTelegramID", err)
	}

	p, err = s.Update(ctx, "owner", strp(" 123456789 "), strp("@owner"))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p.TelegramID == nil || *p.TelegramID != "123456789" || p.TelegramUsername == nil || *p.TelegramUsername != "owner" {
		t.Fatalf("unexpected profile: %+v", p)
	}

	// Update creates the profile when it does not exist yet.
	p, err = s.Update(ctx, "newcomer", strp("-100200"), nil)
	if err != nil || p.TelegramID == nil || *p.TelegramID != "-100200" {
		t.Fatalf("Update newcomer: %+v %v", p, err)
	}
}
