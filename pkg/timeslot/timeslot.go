// Package timeslot works with wall-clock times expressed as minutes since
// midnight and the "HH:MM - HH:MM" slot labels built from them.
package timeslot

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const slotSeparator = " - "

var ErrInvalidClock = errors.New("invalid time format, use HH:MM")

// Range is a half-open interval [Start, End) in minutes since midnight.
type Range struct {
	Start int
	End   int
}

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, ErrInvalidClock
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseRange parses a slot label such as "09:00 - 09:20".
func ParseRange(slot string) (Range, error) {
	parts := strings.Split(slot, slotSeparator)
	if len(parts) != 2 {
		return Range{}, ErrInvalidClock
	}
	start, err := ParseClock(parts[0])
	if err != nil {
		return Range{}, err
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return Range{}, err
	}
	return Range{Start: start, End: end}, nil
}

func (r Range) String() string {
	return FormatClock(r.Start) + slotSeparator + FormatClock(r.End)
}

// Generate splits [startTime, endTime) into consecutive slots of
// slotMinutes. A trailing remainder shorter than slotMinutes is dropped.
// Degenerate windows and unparseable bounds yield no slots.
func Generate(startTime, endTime string, slotMinutes int) []string {
	start, err := ParseClock(startTime)
	if err != nil {
		return []string{}
	}
	end, err := ParseClock(endTime)
	if err != nil {
		return []string{}
	}
	if slotMinutes <= 0 || end <= start {
		return []string{}
	}

	slots := make([]string, 0, (end-start)/slotMinutes)
	for cur := start; cur+slotMinutes <= end; cur += slotMinutes {
		slots = append(slots, Range{Start: cur, End: cur + slotMinutes}.String())
	}
	return slots
}

// Overlaps reports whether a and b are closer than bufferMinutes apart.
// A gap of exactly bufferMinutes does not overlap.
func Overlaps(a, b Range, bufferMinutes int) bool {
	return a.Start < b.End+bufferMinutes && a.End+bufferMinutes > b.Start
}
