package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

func TestProfile_GetAndUpdate(t *testing.T) {
	h, _ := realHandlers(t)
	r := newRouter(h)

	w := serve(r, http.MethodGet, "/profile", "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get -> %d %s", w.Code, w.Body.String())
	}
	var p domain.UserProfile
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("json: %v", err)
	}
	if p.UserID != "u1" || p.TelegramID != nil {
		t.Fatalf("fresh profile: %+v", p)
	}

	if w := serve(r, http.MethodPut, "/profile", "u1", `{bad`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json -> %d", w.Code)
	}
	w = serve(r, http.MethodPut, "/profile", "u1", `{"telegram_id":"abc"}`)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), ErrCodeInvalidTelegramID) {
		t.Fatalf("invalid id -> %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodPut, "/profile", "u1", `{"telegram_id":" 123456789 ","telegram_username":"@alice"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update -> %d %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("json: %v", err)
	}
	if p.TelegramID == nil || *p.TelegramID != "123456789" || p.TelegramUsername == nil || *p.TelegramUsername != "alice" {
		t.Fatalf("updated profile: %+v", p)
	}
}

func TestDashboard(t *testing.T) {
	h, db := realHandlers(t)
	r := newRouter(h)
	sess, slot := seedSessionWithSlot(t, db, "u1")
	if w := serve(r, http.MethodPost, "/public/"+sess.PublicLink+"/slots/"+slot.ID+"/book", "", `{"guest_name":"A"}`); w.Code != http.StatusOK {
		t.Fatalf("book -> %d", w.Code)
	}

	w := serve(r, http.MethodGet, "/dashboard", "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard -> %d", w.Code)
	}
	var out DashboardResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.SessionCount != 1 || out.SlotsCount != 1 || out.BookingCount != 1 {
		t.Fatalf("counts: %+v", out)
	}
	if out.Profile == nil || out.Profile.UserID != "u1" {
		t.Fatalf("profile missing: %+v", out.Profile)
	}

	// service failure -> 500
	r = newRouter(New(stubSessionSvc{}, stubSlotSvc{}, stubProfileSvc{}))
	if w := serve(r, http.MethodGet, "/dashboard", "u1", ""); w.Code != http.StatusInternalServerError {
		t.Fatalf("dashboard failure -> %d", w.Code)
	}
}
