package schedule

import (
	"fmt"
	"time"
)

// Job keys with a schedule entry.
const (
	JobProductFullSync = "product_full_sync"
	JobPriceReset      = "price_reset"
)

// Entry is a weekly (optionally biweekly) trigger definition for one job.
type Entry struct {
	JobKey      string
	Enabled     bool
	DayOfWeek   string
	Hour        int
	Minute      int
	Every2Weeks bool
	Timezone    string
	LastRunAt   *time.Time
}

var dayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Weekday parses the entry's three-letter day token.
func (e *Entry) Weekday() (time.Weekday, error) {
	d, ok := dayNames[e.DayOfWeek]
	if !ok {
		return 0, fmt.Errorf("unknown day of week %q", e.DayOfWeek)
	}
	return d, nil
}

// TargetForWeek returns the trigger instant within the week containing now,
// evaluated in the entry's location.
func (e *Entry) TargetForWeek(now time.Time, loc *time.Location) (time.Time, error) {
	day, err := e.Weekday()
	if err != nil {
		return time.Time{}, err
	}
	local := now.In(loc)
	delta := int(day) - int(local.Weekday())
	targetDay := local.AddDate(0, 0, delta)
	return time.Date(targetDay.Year(), targetDay.Month(), targetDay.Day(), e.Hour, e.Minute, 0, 0, loc), nil
}

// DueAt reports whether the entry should fire at now given the trigger
// window. now must be within [target, target+window). The biweekly gate
// passes on even/odd ISO week parity anchored to the last run: with no prior
// run the gate passes, and a prior run in a different ISO year also passes.
func (e *Entry) DueAt(now time.Time, window time.Duration, loc *time.Location) (bool, error) {
	if !e.Enabled {
		return false, nil
	}
	target, err := e.TargetForWeek(now, loc)
	if err != nil {
		return false, err
	}
	local := now.In(loc)
	if local.Before(target) || !local.Before(target.Add(window)) {
		return false, nil
	}
	if e.LastRunAt != nil {
		// Same-window idempotency: one fire per target.
		if !e.LastRunAt.In(loc).Before(target) {
			return false, nil
		}
		if e.Every2Weeks {
			lastYear, lastWeek := e.LastRunAt.In(loc).ISOWeek()
			nowYear, nowWeek := local.ISOWeek()
			if lastYear == nowYear && (nowWeek-lastWeek)%2 != 0 {
				return false, nil
			}
		}
	}
	return true, nil
}
