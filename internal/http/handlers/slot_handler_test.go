package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/services"
)

func slotBody(sessionID string, start, end time.Time) string {
	if sessionID == "" {
		return fmt.Sprintf(`{"start_time":%q,"end_time":%q}`, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return fmt.Sprintf(`{"session_id":%q,"start_time":%q,"end_time":%q}`,
		sessionID, start.Format(time.RFC3339), end.Format(time.RFC3339))
}

func TestCreateSlot_Validation_DefaultSession_Success(t *testing.T) {
	h, db := realHandlers(t)
	r := newRouter(h)
	start := time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)

	// missing times -> 400
	if w := serve(r, http.MethodPost, "/slots", "u1", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing times -> %d", w.Code)
	}
	// malformed session id -> 400
	if w := serve(r, http.MethodPost, "/slots", "u1", slotBody("nope", start, start.Add(time.Hour))); w.Code != http.StatusBadRequest {
		t.Fatalf("bad session id -> %d", w.Code)
	}
	// end == start -> 400 validation_failed
	w := serve(r, http.MethodPost, "/slots", "u1", slotBody("", start, start))
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), ErrCodeValidation) {
		t.Fatalf("empty range -> %d %s", w.Code, w.Body.String())
	}
	// unknown session -> 404
	if w := serve(r, http.MethodPost, "/slots", "u1", slotBody(uuid.NewString(), start, start.Add(time.Hour))); w.Code != http.StatusNotFound {
		t.Fatalf("unknown session -> %d", w.Code)
	}

	// no session -> a default one is created
	w = serve(r, http.MethodPost, "/slots", "u1", slotBody("", start, start.Add(time.Hour)))
	if w.Code != http.StatusCreated {
		t.Fatalf("create -> %d %s", w.Code, w.Body.String())
	}
	var slot domain.TimeSlot
	if err := json.Unmarshal(w.Body.Bytes(), &slot); err != nil {
		t.Fatalf("json: %v", err)
	}
	if slot.SessionID == nil || slot.IsBooked || slot.Version != 1 {
		t.Fatalf("unexpected slot: %+v", slot)
	}
	var sessions int64
	db.Model(&domain.BookingSession{}).Where("owner_id = ?", "u1").Count(&sessions)
	if sessions != 1 {
		t.Fatalf("expected one default session, got %d", sessions)
	}
}

func TestListSlots_Filters(t *testing.T) {
	h, db := realHandlers(t)
	r := newRouter(h)
	sess, slot := seedSessionWithSlot(t, db, "u1")

	// filter parse errors
	for _, q := range []string{"session_id=x", "booked=maybe", "from=yesterday", "to=2030-01-01"} {
		if w := serve(r, http.MethodGet, "/slots?"+q, "u1", ""); w.Code != http.StatusBadRequest {
			t.Fatalf("%s -> %d", q, w.Code)
		}
	}

	// book it through the public route so the booked filter has something to find
	w := serve(r, http.MethodPost, "/public/"+sess.PublicLink+"/slots/"+slot.ID+"/book", "", `{"guest_name":"Alice"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("book -> %d %s", w.Code, w.Body.String())
	}

	var out ListSlotsResponse
	for _, tc := range []struct {
		query string
		want  int64
	}{
		{"", 1},
		{"booked=true", 1},
		{"booked=false", 0},
		{"session_id=" + sess.ID, 1},
		{"session_id=" + uuid.NewString(), 0},
		{"from=" + slot.StartTime.Format(time.RFC3339), 1},
		{"to=" + slot.StartTime.Format(time.RFC3339), 0},
	} {
		w := serve(r, http.MethodGet, "/slots?"+tc.query, "u1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("%q -> %d", tc.query, w.Code)
		}
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.Pagination.Total != tc.want {
			t.Fatalf("%q total = %d, want %d", tc.query, out.Pagination.Total, tc.want)
		}
		// Only the unfiltered view carries an ETag.
		if (tc.query == "") != (w.Header().Get("ETag") != "") {
			t.Fatalf("%q etag = %q", tc.query, w.Header().Get("ETag"))
		}
	}
}

func TestListSlots_PassesQueryToService(t *testing.T) {
	var got services.SlotQuery
	r := newRouter(New(stubSessionSvc{}, stubSlotSvc{
		list: func(_ context.Context, owner string, q services.SlotQuery, p, ps int) ([]domain.TimeSlot, int64, error) {
			got = q
			if owner != "u1" || p != 2 || ps != 5 {
				t.Fatalf("args owner=%q p=%d ps=%d", owner, p, ps)
			}
			return nil, 0, nil
		},
	}, stubProfileSvc{}))

	w := serve(r, http.MethodGet, "/slots?booked=false&from=2030-01-01T10:00:00%2B02:00&page=2&page_size=5", "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d", w.Code)
	}
	if got.Booked == nil || *got.Booked || got.From == nil || got.To != nil {
		t.Fatalf("query = %+v", got)
	}
	if want := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC); !got.From.Equal(want) || got.From.Location() != time.UTC {
		t.Fatalf("from = %v", got.From)
	}
}

func TestCancelAndDeleteSlot(t *testing.T) {
	h, db := realHandlers(t)
	r := newRouter(h)
	sess, slot := seedSessionWithSlot(t, db, "u1")

	if w := serve(r, http.MethodPost, "/slots/bad/cancel", "u1", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id -> %d", w.Code)
	}

	book := "/public/" + sess.PublicLink + "/slots/" + slot.ID + "/book"
	if w := serve(r, http.MethodPost, book, "guest-user", ""); w.Code != http.StatusOK {
		t.Fatalf("book -> %d %s", w.Code, w.Body.String())
	}

	// foreign owner cannot cancel
	if w := serve(r, http.MethodPost, "/slots/"+slot.ID+"/cancel", "u2", ""); w.Code != http.StatusNotFound {
		t.Fatalf("foreign cancel -> %d", w.Code)
	}

	w := serve(r, http.MethodPost, "/slots/"+slot.ID+"/cancel", "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("cancel -> %d %s", w.Code, w.Body.String())
	}
	var out domain.TimeSlot
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.IsBooked || out.BookedBy != nil || out.BookedAt != nil {
		t.Fatalf("cancel left booking: %+v", out)
	}

	// freed slot is bookable again
	if w := serve(r, http.MethodPost, book, "", `{"guest_name":"Bob"}`); w.Code != http.StatusOK {
		t.Fatalf("rebook -> %d", w.Code)
	}

	if w := serve(r, http.MethodDelete, "/slots/"+slot.ID, "u2", ""); w.Code != http.StatusNotFound {
		t.Fatalf("foreign delete -> %d", w.Code)
	}
	if w := serve(r, http.MethodDelete, "/slots/"+slot.ID, "u1", ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete -> %d", w.Code)
	}
	if w := serve(r, http.MethodDelete, "/slots/"+slot.ID, "u1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("second delete -> %d", w.Code)
	}
}

func TestCancelSlot_ConflictMapsTo409(t *testing.T) {
	r := newRouter(New(stubSessionSvc{}, stubSlotSvc{}, stubProfileSvc{}))
	w := serve(r, http.MethodPost, "/slots/"+uuid.NewString()+"/cancel", "u1", "")
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), ErrCodeConflict) {
		t.Fatalf("conflict -> %d %s", w.Code, w.Body.String())
	}
}
