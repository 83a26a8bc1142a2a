package models

import (
	"encoding/json"
	"sort"
	"time"
)

// WeekdaySet is a 7-bit set where bit i stands for time.Weekday(i), Sunday being bit 0.
type WeekdaySet uint8

const EveryWeekday WeekdaySet = 0x7F

func WeekdaySetOf(days ...time.Weekday) WeekdaySet {
	var set WeekdaySet
	for _, day := range days {
		set = set.With(day)
	}
	return set
}

func (set WeekdaySet) Has(day time.Weekday) bool {
	if day < time.Sunday || day > time.Saturday {
		return false
	}
	return set&(1<<uint(day)) != 0
}

func (set WeekdaySet) With(day time.Weekday) WeekdaySet {
	if day < time.Sunday || day > time.Saturday {
		return set
	}
	return (set | 1<<uint(day)) & EveryWeekday
}

func (set WeekdaySet) Without(day time.Weekday) WeekdaySet {
	if day < time.Sunday || day > time.Saturday {
		return set
	}
	return set &^ (1 << uint(day)) & EveryWeekday
}

func (set WeekdaySet) IsEmpty() bool {
	return set&EveryWeekday == 0
}

func (set WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		if set.Has(day) {
			days = append(days, day)
		}
	}
	return days
}

// Permits is the only place weekday restrictions are evaluated.
// An empty set permits every day; weekly and custom schedules saved without
// any weekday behave like daily ones until product confirms otherwise.
func (set WeekdaySet) Permits(day time.Weekday) bool {
	if set.IsEmpty() {
		return true
	}
	return set.Has(day)
}

// WeekdaySetFromInts ignores values outside 0..6.
func WeekdaySetFromInts(values []int) WeekdaySet {
	var set WeekdaySet
	for _, value := range values {
		set = set.With(time.Weekday(value))
	}
	return set
}

func (set WeekdaySet) Ints() []int {
	days := set.Days()
	values := make([]int, 0, len(days))
	for _, day := range days {
		values = append(values, int(day))
	}
	sort.Ints(values)
	return values
}

func (set WeekdaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(set.Ints())
}
