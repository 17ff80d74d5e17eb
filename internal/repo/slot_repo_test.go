package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

func TestCreateSlot_AssignsIDAndVersion(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()

	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	slot := &domain.TimeSlot{OwnerID: "u1", StartTime: start, EndTime: start.Add(time.Hour)}
	if err := CreateSlot(ctx, db, slot); err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}
	if slot.ID == "" || slot.Version != 1 {
		t.Fatalf("unexpected slot after create: %+v", slot)
	}

	got, err := GetOwnedSlot(ctx, db, slot.ID, "u1")
	if err != nil || !got.StartTime.Equal(start) {
		t.Fatalf("GetOwnedSlot: got=%+v err=%v", got, err)
	}
	if _, err := GetOwnedSlot(ctx, db, slot.ID, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetOwnedSlot(other owner) err = %v; want ErrNotFound", err)
	}
	if _, err := GetSlot(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSlot(missing) err = %v; want ErrNotFound", err)
	}
}

func TestListSlots_FiltersAndOrder(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()

	sid := "s1"
	other := "s2"
	base := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	seed := []domain.TimeSlot{
		{ID: "a", OwnerID: "u1", SessionID: &sid, StartTime: base, EndTime: base.Add(time.Hour)},
		{ID: "b", OwnerID: "u1", SessionID: &sid, StartTime: base.Add(2 * time.Hour), EndTime: base.Add(3 * time.Hour), IsBooked: true, GuestName: strp("Alice")},
		{ID: "c", OwnerID: "u1", SessionID: &other, StartTime: base.Add(4 * time.Hour), EndTime: base.Add(5 * time.Hour)},
		{ID: "x", OwnerID: "u2", SessionID: &sid, StartTime: base.Add(time.Hour), EndTime: base.Add(2 * time.Hour)},
	}
	for i := range seed {
		if err := CreateSlot(ctx, db, &seed[i]); err != nil {
			t.Fatalf("seed %s: %v", seed[i].ID, err)
		}
	}

	all, err := ListSlots(ctx, db, SlotFilter{OwnerID: "u1"}, 0, 0)
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[1].ID != "b" || all[2].ID != "a" {
		t.Fatalf("expected c,b,a (start desc), got %+v", all)
	}

	booked := true
	onlyBooked, err := ListSlots(ctx, db, SlotFilter{OwnerID: "u1", Booked: &booked}, 0, 0)
	if err != nil || len(onlyBooked) != 1 || onlyBooked[0].ID != "b" {
		t.Fatalf("booked filter: got=%+v err=%v", onlyBooked, err)
	}

	from := base.Add(time.Hour)
	to := base.Add(4 * time.Hour)
	window, err := ListSlots(ctx, db, SlotFilter{OwnerID: "u1", SessionID: &sid, From: &from, To: &to}, 0, 0)
	if err != nil || len(window) != 1 || window[0].ID != "b" {
		t.Fatalf("window filter: got=%+v err=%v", window, err)
	}

	page, err := ListSlots(ctx, db, SlotFilter{OwnerID: "u1"}, 1, 1)
	if err != nil || len(page) != 1 || page[0].ID != "b" {
		t.Fatalf("paged: got=%+v err=%v", page, err)
	}

	n, err := CountSlots(ctx, db, SlotFilter{SessionID: &sid})
	if err != nil || n != 3 {
		t.Fatalf("CountSlots(session) = %d, %v; want 3", n, err)
	}
}

func TestListFreeSlots_FutureUnbookedAscending(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()

	sid := "s1"
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	seed := []domain.TimeSlot{
		{ID: "past", OwnerID: "u1", SessionID: &sid, StartTime: now.Add(-time.Hour), EndTime: now},
		{ID: "late", OwnerID: "u1", SessionID: &sid, StartTime: now.Add(3 * time.Hour), EndTime: now.Add(4 * time.Hour)},
		{ID: "soon", OwnerID: "u1", SessionID: &sid, StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour)},
		{ID: "taken", OwnerID: "u1", SessionID: &sid, StartTime: now.Add(2 * time.Hour), EndTime: now.Add(3 * time.Hour), IsBooked: true, GuestName: strp("Bob")},
	}
	for i := range seed {
		if err := CreateSlot(ctx, db, &seed[i]); err != nil {
			t.Fatalf("seed %s: %v", seed[i].ID, err)
		}
	}

	free, err := ListFreeSlots(ctx, db, sid, now)
	if err != nil {
		t.Fatalf("ListFreeSlots: %v", err)
	}
	if len(free) != 2 || free[0].ID != "soon" || free[1].ID != "late" {
		t.Fatalf("expected soon, late; got %+v", free)
	}
}

func TestListBookedBetween_InclusiveWindow(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()

	s, err := CreateSession(ctx, db, "u1", "Demo", nil, "abababababab")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	from := time.Date(2030, 1, 2, 11, 30, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	seed := []domain.TimeSlot{
		{ID: "edge", OwnerID: "u1", SessionID: &s.ID, StartTime: from, EndTime: from.Add(time.Hour), IsBooked: true, GuestName: strp("A")},
		{ID: "mid", OwnerID: "u1", SessionID: &s.ID, StartTime: from.Add(30 * time.Minute), EndTime: to, IsBooked: true, GuestName: strp("B")},
		{ID: "free", OwnerID: "u1", SessionID: &s.ID, StartTime: from.Add(10 * time.Minute), EndTime: to},
		{ID: "after", OwnerID: "u1", SessionID: &s.ID, StartTime: to.Add(time.Minute), EndTime: to.Add(time.Hour), IsBooked: true, GuestName: strp("C")},
	}
	for i := range seed {
		if err := CreateSlot(ctx, db, &seed[i]); err != nil {
			t.Fatalf("seed %s: %v", seed[i].ID, err)
		}
	}

	got, err := ListBookedBetween(ctx, db, from, to)
	if err != nil {
		t.Fatalf("ListBookedBetween: %v", err)
	}
	if len(got) != 2 || got[0].ID != "edge" || got[1].ID != "mid" {
		t.Fatalf("expected edge, mid; got %+v", got)
	}
	if got[0].Session == nil || got[0].Session.Title != "Demo" {
		t.Fatalf("expected session preloaded, got %+v", got[0].Session)
	}
}

func TestUpdateSlotVersioned_ConflictOnStaleVersion(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()

	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	slot := &domain.TimeSlot{OwnerID: "u1", StartTime: start, EndTime: start.Add(time.Hour)}
	if err := CreateSlot(ctx, db, slot); err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}

	// Two readers load the same version.
	a, _ := GetSlot(ctx, db, slot.ID)
	b, _ := GetSlot(ctx, db, slot.ID)

	bookedAt := start.Add(-time.Hour)
	a.IsBooked, a.GuestName, a.BookedAt = true, strp("Alice"), &bookedAt
	if err := UpdateSlotVersioned(ctx, db, a); err != nil {
		t.Fatalf("first writer: %v", err)
	}
	if a.Version != 2 {
		t.Fatalf("version after update = %d; want 2", a.Version)
	}

	b.IsBooked, b.GuestName = true, strp("Bob")
	if err := UpdateSlotVersioned(ctx, db, b); !errors.Is(err, ErrStale) {
		t.Fatalf("second writer err = %v; want ErrStale", err)
	}

	got, _ := GetSlot(ctx, db, slot.ID)
	if got.GuestName == nil || *got.GuestName != "Alice" || got.Version != 2 {
		t.Fatalf("expected Alice's write to stand, got %+v", got)
	}

	// Clearing writes NULLs through the map update.
	got.IsBooked, got.GuestName, got.BookedAt = false, nil, nil
	if err := UpdateSlotVersioned(ctx, db, got); err != nil {
		t.Fatalf("clear: %v", err)
	}
	cleared, _ := GetSlot(ctx, db, slot.ID)
	if cleared.IsBooked || cleared.GuestName != nil || cleared.BookedAt != nil {
		t.Fatalf("expected cleared booking, got %+v", cleared)
	}
}

func TestDeleteSlot_OwnerOnly(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()

	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	slot := &domain.TimeSlot{OwnerID: "u1", StartTime: start, EndTime: start.Add(time.Hour)}
	if err := CreateSlot(ctx, db, slot); err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}
	if err := DeleteSlot(ctx, db, slot.ID, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete by other owner err = %v; want ErrNotFound", err)
	}
	if err := DeleteSlot(ctx, db, slot.ID, "u1"); err != nil {
		t.Fatalf("DeleteSlot: %v", err)
	}
	if _, err := GetSlot(ctx, db, slot.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSlot after delete err = %v; want ErrNotFound", err)
	}
}

func TestIsStale_ContentionErrors(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrStale, true},
		{fmt.Errorf("%w: database is locked", ErrStale), true},
		{errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{errors.New("database is locked (517) (SQLITE_BUSY_SNAPSHOT)"), true},
		{errors.New("ERROR: could not serialize access due to concurrent update (SQLSTATE 40001)"), true},
		{ErrNotFound, false},
		{errors.New("no such table: time_slots"), false},
	}
	for _, tc := range cases {
		if got := IsStale(tc.err); got != tc.want {
			t.Fatalf("IsStale(%v) = %v; want %v", tc.err, got, tc.want)
		}
	}
}
