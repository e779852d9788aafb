package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// MaxAmount is the largest amount a single entry may carry.
const MaxAmount int64 = 1_000_000_000_000

// ParseAmount converts a base-10 token to an amount.
//
// Only digits are accepted, so signs, decimals and separators are rejected.
// Zero and values above MaxAmount are rejected too.
//
// Examples:
//
//	ParseAmount("500")   -> 500, nil
//	ParseAmount("-5")    -> 0, ErrInvalidAmount
//	ParseAmount("12.5")  -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if v <= 0 || v > MaxAmount {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// TimeOfDay is a wall-clock hour and minute without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM". Single-digit halves ("9:5") are accepted.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, ErrInvalidTime
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return TimeOfDay{}, ErrInvalidTime
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return TimeOfDay{}, ErrInvalidTime
	}
	t := TimeOfDay{Hour: hour, Minute: minute}
	if err := t.Validate(); err != nil {
		return TimeOfDay{}, err
	}
	return t, nil
}

func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return ErrInvalidTime
	}
	return nil
}

// On returns the instant with t's hour and minute on the calendar day of day,
// interpreted in day's location. It never rolls over to the next day.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}
