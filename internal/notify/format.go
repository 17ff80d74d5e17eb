package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

const (
	dayLayout  = "02.01.2006 15:04"
	hourLayout = "15:04"
)

// timeRange renders "dd.mm.yyyy HH:MM - HH:MM" in loc; nil means UTC.
func timeRange(slot domain.TimeSlot, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return slot.StartTime.In(loc).Format(dayLayout) + " - " + slot.EndTime.In(loc).Format(hourLayout)
}

// durationText renders the slot length in whole minutes.
func durationText(slot domain.TimeSlot) string {
	return fmt.Sprintf("%d min", int(slot.Duration().Minutes()))
}

// BookingMessage is sent to the owner when a slot becomes booked.
// sessionTitle may be empty.
func BookingMessage(slot domain.TimeSlot, sessionTitle string, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("📅 <b>New booking!</b>\n\n")
	fmt.Fprintf(&b, "⏰ <b>Time:</b> %s\n", timeRange(slot, loc))
	fmt.Fprintf(&b, "👤 <b>Booked by:</b> %s\n", html.EscapeString(slot.Booker()))
	fmt.Fprintf(&b, "⏱️ <b>Duration:</b> %s", durationText(slot))
	if sessionTitle != "" {
		fmt.Fprintf(&b, "\n📋 <b>Session:</b> %s", html.EscapeString(sessionTitle))
	}
	return b.String()
}

// CancellationMessage is sent to the owner when a booked slot is freed.
func CancellationMessage(slot domain.TimeSlot, loc *time.Location) string {
	return "❌ <b>Booking canceled</b>\n\n⏰ <b>Time:</b> " + timeRange(slot, loc)
}

// ReminderMessage is sent to the owner about a booked slot starting in
// about a day.
func ReminderMessage(slot domain.TimeSlot, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("⏰ <b>Reminder!</b> You have a meeting in 24 hours.\n\n")
	fmt.Fprintf(&b, "⏰ <b>Time:</b> %s\n", timeRange(slot, loc))
	fmt.Fprintf(&b, "👤 <b>With:</b> %s", html.EscapeString(slot.Booker()))
	if slot.Session != nil && slot.Session.Title != "" {
		fmt.Fprintf(&b, "\n📋 <b>Session:</b> %s", html.EscapeString(slot.Session.Title))
	}
	return b.String()
}
