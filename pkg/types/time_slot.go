package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeSlot is a named delivery/pickup window with booking capacity, e.g. "18:00-21:00".
type TimeSlot struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Capacity int    `json:"capacity"`
	Booked   int    `json:"booked"`
}

// Available reports whether the slot still accepts bookings; zero capacity means unlimited.
func (s TimeSlot) Available() bool {
	if s.Capacity <= 0 {
		return true
	}
	return s.Booked < s.Capacity
}

// FindTimeSlot matches by id or label.
func FindTimeSlot(slots []TimeSlot, key string) (TimeSlot, bool) {
	for _, slot := range slots {
		if slot.ID == key || slot.Label == key {
			return slot, true
		}
	}
	return TimeSlot{}, false
}

// SlotStart parses the start of an "HH:MM-HH:MM" label on the given day.
func SlotStart(label string, day time.Time) (time.Time, error) {
	start, _, found := strings.Cut(strings.TrimSpace(label), "-")
	if !found {
		return time.Time{}, fmt.Errorf("time slot %q: expected HH:MM-HH:MM", label)
	}
	hourRaw, minuteRaw, found := strings.Cut(strings.TrimSpace(start), ":")
	if !found {
		return time.Time{}, fmt.Errorf("time slot %q: expected HH:MM start", label)
	}
	hour, err := strconv.Atoi(hourRaw)
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("time slot %q: invalid hour", label)
	}
	minute, err := strconv.Atoi(minuteRaw)
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("time slot %q: invalid minute", label)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location()), nil
}
