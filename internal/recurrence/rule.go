package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Weekday bits, matching the stored days_of_week mask.
const (
	Sunday    = 1 << 0
	Monday    = 1 << 1
	Tuesday   = 1 << 2
	Wednesday = 1 << 3
	Thursday  = 1 << 4
	Friday    = 1 << 5
	Saturday  = 1 << 6

	AllDays = 0b1111111
)

var (
	ErrInvalidTime = errors.New("recurrence: time of day out of range")
	ErrInvalidSpan = errors.New("recurrence: end date before start date")
)

// Rule is a weekly recurrence: a wall-clock time of day plus a weekday
// bitmask, optionally bounded by inclusive start/end dates. A mask of 0 is
// legal and simply never occurs. The rule carries no timezone; it is
// evaluated in the clock's location at resolution time.
type Rule struct {
	Hour        int        `json:"hour"`
	Minute      int        `json:"minute"`
	WeekdayMask int        `json:"weekday_mask"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

func (r Rule) Validate() error {
	if r.Hour < 0 || r.Hour > 23 || r.Minute < 0 || r.Minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidTime, r.Hour, r.Minute)
	}
	if r.StartDate != nil && r.EndDate != nil && compareDate(*r.EndDate, *r.StartDate) < 0 {
		return ErrInvalidSpan
	}
	return nil
}

// OccursOn reports whether the mask includes the given weekday.
func (r Rule) OccursOn(day time.Weekday) bool {
	return r.WeekdayMask&(1<<uint(day)) != 0
}

// At combines a calendar day with the rule's time of day, in day's location.
func (r Rule) At(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, r.Hour, r.Minute, 0, 0, day.Location())
}

// Weekdays lists the masked weekdays in Sunday-first order.
func (r Rule) Weekdays() []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if r.OccursOn(d) {
			days = append(days, d)
		}
	}
	return days
}

// TimeOfDay renders the rule's time as HH:MM.
func (r Rule) TimeOfDay() string {
	return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute)
}

// ParseWeekdays parses a compact weekday list like "一三五" or "mon,wed,fri"
// into a mask. "每天" / "daily" / "*" mean all days.
func ParseWeekdays(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "每天", "daily", "*", "all":
		return AllDays, nil
	}

	mask := 0
	for _, part := range splitWeekdays(s) {
		bit, ok := weekdayBit(part)
		if !ok {
			return 0, fmt.Errorf("recurrence: unknown weekday %q", part)
		}
		mask |= bit
	}
	if mask == 0 {
		return 0, fmt.Errorf("recurrence: no weekdays in %q", s)
	}
	return mask, nil
}

func splitWeekdays(s string) []string {
	if strings.ContainsAny(s, ",、 ") {
		return strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == '、' || r == ' '
		})
	}
	// Chinese shorthand stacks single characters: 一三五
	var parts []string
	for _, r := range s {
		parts = append(parts, string(r))
	}
	return parts
}

func weekdayBit(s string) (int, bool) {
	switch s {
	case "日", "天", "sun", "sunday":
		return Sunday, true
	case "一", "mon", "monday":
		return Monday, true
	case "二", "tue", "tuesday":
		return Tuesday, true
	case "三", "wed", "wednesday":
		return Wednesday, true
	case "四", "thu", "thursday":
		return Thursday, true
	case "五", "fri", "friday":
		return Friday, true
	case "六", "sat", "saturday":
		return Saturday, true
	}
	return 0, false
}

// compareDate orders two instants by calendar date only, each in its own
// location, ignoring the time of day.
func compareDate(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	switch {
	case ay != by:
		return ay - by
	case am != bm:
		return int(am) - int(bm)
	default:
		return ad - bd
	}
}
