package notifications

import (
	"testing"
	"time"
)

func TestNextRun(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatal(err)
	}

	// Before 09:00 local, the run is later the same day.
	now := time.Date(2026, 8, 30, 7, 15, 0, 0, loc)
	next := nextRun(now, loc)
	want := time.Date(2026, 8, 30, 9, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("nextRun before hour = %v, want %v", next, want)
	}

	// After 09:00 local, the run rolls to the next day.
	now = time.Date(2026, 8, 30, 9, 0, 1, 0, loc)
	next = nextRun(now, loc)
	want = time.Date(2026, 8, 31, 9, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("nextRun after hour = %v, want %v", next, want)
	}

	// Exactly 09:00 rolls forward too.
	now = time.Date(2026, 8, 30, 9, 0, 0, 0, loc)
	if next := nextRun(now, loc); !next.Equal(want) {
		t.Errorf("nextRun at hour = %v, want %v", next, want)
	}
}
