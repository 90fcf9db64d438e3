package dailychallenge

import (
	"fmt"
	"regexp"
	"time"
)

const dateLayout = "2006-01-02"

// allowedWindowDays bounds how far from today a challenge may be fetched.
const allowedWindowDays = 2

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func validDateFormat(date string) bool {
	if !dateRe.MatchString(date) {
		return false
	}
	_, err := time.Parse(dateLayout, date)
	return err == nil
}

// todayIn returns today's YYYY-MM-DD in the given IANA timezone, falling
// back to UTC for unknown zones.
func todayIn(timezone string, now time.Time) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return now.In(loc).Format(dateLayout)
}

// checkDateWindow verifies the requested date lies within the allowed
// window around today in the user's timezone.
func checkDateWindow(date, timezone string, now time.Time) error {
	today := todayIn(timezone, now)
	t1, err := time.Parse(dateLayout, date)
	if err != nil {
		return fmt.Errorf("invalid date %q", date)
	}
	t2, _ := time.Parse(dateLayout, today)
	diff := int(t1.Sub(t2).Hours() / 24)
	if diff < -allowedWindowDays || diff > allowedWindowDays {
		return fmt.Errorf("date %s is outside allowed range (today %s +/- %d days)", date, today, allowedWindowDays)
	}
	return nil
}
