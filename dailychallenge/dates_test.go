package dailychallenge

import (
	"testing"
	"time"
)

func TestValidDateFormat(t *testing.T) {
	cases := map[string]bool{
		"2026-08-30": true,
		"2026-8-30":  false,
		"2026-13-01": false,
		"today":      false,
		"":           false,
	}
	for date, want := range cases {
		if got := validDateFormat(date); got != want {
			t.Errorf("validDateFormat(%q) = %v, want %v", date, got, want)
		}
	}
}

func TestTodayInTimezone(t *testing.T) {
	// 2026-03-01 01:30 UTC is still 2026-02-28 in New York.
	now := time.Date(2026, 3, 1, 1, 30, 0, 0, time.UTC)
	if got := todayIn("UTC", now); got != "2026-03-01" {
		t.Errorf("todayIn UTC = %q", got)
	}
	if got := todayIn("America/New_York", now); got != "2026-02-28" {
		t.Errorf("todayIn America/New_York = %q", got)
	}
	// Unknown zones fall back to UTC.
	if got := todayIn("Not/AZone", now); got != "2026-03-01" {
		t.Errorf("todayIn fallback = %q", got)
	}
}

func TestCheckDateWindow(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for _, date := range []string{"2026-08-28", "2026-08-30", "2026-09-01"} {
		if err := checkDateWindow(date, "UTC", now); err != nil {
			t.Errorf("checkDateWindow(%q) unexpected error: %v", date, err)
		}
	}
	for _, date := range []string{"2026-08-27", "2026-09-02", "2025-01-01"} {
		if err := checkDateWindow(date, "UTC", now); err == nil {
			t.Errorf("checkDateWindow(%q) accepted out-of-window date", date)
		}
	}
}
