package payout

import "time"

// Frequency represents how often payouts are scheduled
type Frequency string

const (
	// FrequencyWeekly schedules one payout per week
	FrequencyWeekly Frequency = "WEEKLY"
	// FrequencyBiWeekly schedules one payout every two weeks
	FrequencyBiWeekly Frequency = "BIWEEKLY"
	// FrequencyMonthly schedules one payout per month
	FrequencyMonthly Frequency = "MONTHLY"
)

// IsValid checks if the frequency is valid
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// NextPayoutDate computes the next payout date after today for the given
// frequency and target weekday. When today already is the target weekday the
// next cycle is used; a payout is never scheduled same-day.
func NextPayoutDate(today time.Time, frequency Frequency, target time.Weekday) time.Time {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	switch frequency {
	case FrequencyBiWeekly:
		return nextWeekday(day, target).AddDate(0, 0, 7)
	case FrequencyMonthly:
		firstOfNext := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location()).AddDate(0, 1, 0)
		offset := (int(target) - int(firstOfNext.Weekday()) + 7) % 7
		return firstOfNext.AddDate(0, 0, offset)
	default:
		return nextWeekday(day, target)
	}
}

// nextWeekday returns the next occurrence of target strictly after day
func nextWeekday(day time.Time, target time.Weekday) time.Time {
	offset := (int(target) - int(day.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}
