package subscriptions

import (
	"testing"
	"time"
)

func TestPlanByID(t *testing.T) {
	if p := planByID("premium_monthly"); p == nil || p.Interval != "month" {
		t.Errorf("premium_monthly lookup = %+v", p)
	}
	if p := planByID("nope"); p != nil {
		t.Errorf("unknown plan lookup = %+v", p)
	}
}

func TestExpiryFor(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	monthly := planByID("premium_monthly")
	yearly := planByID("premium_yearly")

	if got := expiryFor(monthly, now); got != now.AddDate(0, 1, 0) {
		t.Errorf("monthly expiry = %v", got)
	}
	if got := expiryFor(yearly, now); got != now.AddDate(1, 0, 0) {
		t.Errorf("yearly expiry = %v", got)
	}
}
