package types

import (
	"fmt"
	"time"
)

// DateOf truncates t to its UTC calendar date
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BillingPeriod is the half-open [Start, End) interval covered by one charge.
// End is the start of the following period.
type BillingPeriod struct {
	Start time.Time `db:"period_start" json:"period_start"`
	End   time.Time `db:"period_end" json:"period_end"`
}

// NewBillingPeriod derives the period beginning at start for one cycle length.
func NewBillingPeriod(start time.Time, cycle BillingCycle) BillingPeriod {
	return BillingPeriod{
		Start: start,
		End:   AddClampedDate(start, 0, cycle.Months(), 0),
	}
}

// Key returns the canonical period identifier used for the
// (contract_id, billing_period) uniqueness check.
func (p BillingPeriod) Key() string {
	return p.Start.UTC().Format("2006-01-02")
}

// Contains reports whether t falls inside the period
func (p BillingPeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Days returns the number of whole days covered by the period
func (p BillingPeriod) Days() int {
	return int(p.End.Sub(p.Start).Hours() / 24)
}

func (p BillingPeriod) String() string {
	return fmt.Sprintf("%s..%s", p.Start.UTC().Format("2006-01-02"), p.End.UTC().Format("2006-01-02"))
}

// NextBillingDate calculates the next billing date based on the given start
// time and the contract's billing cycle. This leverages clamped date addition,
// which properly handles leap years and month-boundary issues
// (e.g. Jan 31 + 1 month lands on the last day of February).
func NextBillingDate(start time.Time, cycle BillingCycle) (time.Time, error) {
	months := cycle.Months()
	if months <= 0 {
		return start, fmt.Errorf("invalid billing cycle: %s", cycle)
	}
	return AddClampedDate(start, 0, months, 0), nil
}

// AddClampedDate adds the given years, months and days to t, clamping the
// day-of-month to the last valid day of the target month instead of rolling
// over into the next month the way time.AddDate does.
func AddClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	// Calculate the proposed year and month
	newY := y + years
	newM := time.Month(int(m) + months)

	// If we move beyond December, it adjusts correctly,
	// for example adding 2 months to November will land on January next year.
	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	// Find the last valid day of the new month
	firstOfNextMonth := time.Date(newY, newM+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNextMonth.Add(-24 * time.Hour).Day()

	newD := d + days
	if newD > lastDay {
		// Clamp to last valid day
		newD = lastDay
	}

	return time.Date(newY, newM, newD, h, min, sec, t.Nanosecond(), t.Location())
}

// ClampedDayOfMonth returns the given day within the month of anchor, clamped
// to the last valid day of that month. Used for billing-day-of-month
// overrides (day 31 in February resolves to the last day of February).
func ClampedDayOfMonth(anchor time.Time, day int) time.Time {
	y, m, _ := anchor.Date()
	firstOfNextMonth := time.Date(y, m+1, 1, 0, 0, 0, 0, anchor.Location())
	lastDay := firstOfNextMonth.Add(-24 * time.Hour).Day()
	if day > lastDay {
		day = lastDay
	}
	if day < 1 {
		day = 1
	}
	return time.Date(y, m, day, 0, 0, 0, 0, anchor.Location())
}
