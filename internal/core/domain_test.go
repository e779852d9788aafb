package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"500", 500, true},
		{" 42 ", 42, true},
		{"1000000000000", MaxAmount, true},
		{"1000000000001", 0, false},
		{"0", 0, false},
		{"-5", 0, false},
		{"+5", 0, false},
		{"12.5", 0, false},
		{"1,000", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"٣", 0, false}, // non-ASCII digit
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("ParseAmount(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("ParseAmount(%q) expected ErrInvalidAmount, got %d, %v", tc.in, got, err)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in   string
		want TimeOfDay
		ok   bool
	}{
		{"09:15", TimeOfDay{9, 15}, true},
		{"9:5", TimeOfDay{9, 5}, true},
		{"00:00", TimeOfDay{0, 0}, true},
		{"23:59", TimeOfDay{23, 59}, true},
		{"24:00", TimeOfDay{}, false},
		{"12:60", TimeOfDay{}, false},
		{"1230", TimeOfDay{}, false},
		{"ab:cd", TimeOfDay{}, false},
		{"", TimeOfDay{}, false},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("ParseTimeOfDay(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidTime) {
			t.Fatalf("ParseTimeOfDay(%q) expected ErrInvalidTime, got %v", tc.in, err)
		}
	}
}

func TestTimeOfDayOnKeepsDay(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	now := time.Date(2026, 3, 10, 18, 30, 0, 0, loc)

	past := TimeOfDay{Hour: 9, Minute: 15}.On(now)
	want := time.Date(2026, 3, 10, 9, 15, 0, 0, loc)
	if !past.Equal(want) {
		t.Fatalf("expected %v, got %v", want, past)
	}
	if !past.Before(now) {
		t.Fatalf("time already passed today must stay today")
	}
}

func TestLedgerAppendAndTotals(t *testing.T) {
	var l Ledger
	now := time.Now()
	if err := l.Append(Income, LedgerEntry{Amount: 500, RecordedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := l.Append(Expense, LedgerEntry{Amount: 200, RecordedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := l.Append(EntryKind("other"), LedgerEntry{Amount: 1}); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}

	got := l.Totals()
	want := Totals{Income: 500, Expense: 200, Balance: 300}
	if got != want {
		t.Fatalf("totals = %+v, want %+v", got, want)
	}
}

func TestLedgerCloneIsIndependent(t *testing.T) {
	l := Ledger{Income: []LedgerEntry{{Amount: 1}}}
	c := l.Clone()
	c.Income[0].Amount = 99
	c.Income = append(c.Income, LedgerEntry{Amount: 2})
	if l.Income[0].Amount != 1 || len(l.Income) != 1 {
		t.Fatalf("clone shares state with its source: %+v", l)
	}
}
