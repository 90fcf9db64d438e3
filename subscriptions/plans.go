package subscriptions

import "time"

// Plan is a purchasable premium tier. The catalog is static, billing state
// lives on the user record.
type Plan struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"` // cents
	Currency string `json:"currency"`
	Interval string `json:"interval"` // month or year
}

var plans = []Plan{
	{ID: "premium_monthly", Name: "Premium Monthly", Price: 999, Currency: "usd", Interval: "month"},
	{ID: "premium_yearly", Name: "Premium Yearly", Price: 7999, Currency: "usd", Interval: "year"},
}

func planByID(id string) *Plan {
	for i := range plans {
		if plans[i].ID == id {
			return &plans[i]
		}
	}
	return nil
}

// expiryFor computes when a plan bought now runs out.
func expiryFor(p *Plan, now time.Time) time.Time {
	if p.Interval == "year" {
		return now.AddDate(1, 0, 0)
	}
	return now.AddDate(0, 1, 0)
}
