package services

import (
	"strings"
	"time"
)

func DateAtLocation(value time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	localized := value.In(location)
	year, month, day := localized.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, location)
}

func DayRange(value time.Time, location *time.Location) (time.Time, time.Time) {
	start := DateAtLocation(value, location)
	return start, start.AddDate(0, 0, 1)
}

// CivilDate returns the calendar date of value in location as UTC midnight,
// which keeps day arithmetic free of DST gaps.
func CivilDate(value time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	year, month, day := value.In(location).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from from to to in location. Negative when to is earlier.
func DaysBetween(from time.Time, to time.Time, location *time.Location) int {
	return int(CivilDate(to, location).Sub(CivilDate(from, location)).Hours() / 24)
}

func SameDay(left time.Time, right time.Time, location *time.Location) bool {
	return CivilDate(left, location).Equal(CivilDate(right, location))
}

// ResolveLocation loads an IANA zone name, falling back when it is empty or unknown.
func ResolveLocation(name string, fallback *time.Location) *time.Location {
	if fallback == nil {
		fallback = time.UTC
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return fallback
	}
	return location
}
