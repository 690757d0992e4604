package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// rruleDay maps time.Weekday to the RFC 5545 BYDAY token.
var rruleDay = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// ToRRule renders the rule as an RFC 5545 RRULE string, the interchange
// format accepted by /schedule and produced by exports.
func ToRRule(r Rule) string {
	parts := []string{"FREQ=WEEKLY"}

	if r.WeekdayMask != AllDays && r.WeekdayMask != 0 {
		var days []string
		for _, d := range r.Weekdays() {
			days = append(days, rruleDay[d])
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	parts = append(parts, fmt.Sprintf("BYHOUR=%d", r.Hour))
	parts = append(parts, fmt.Sprintf("BYMINUTE=%d", r.Minute))
	if r.EndDate != nil {
		parts = append(parts, "UNTIL="+r.EndDate.UTC().Format("20060102T150405Z"))
	}

	return "RRULE:" + strings.Join(parts, ";")
}

// FromRRule parses a weekly RRULE string into a Rule. Daily rules are
// accepted as a full weekday mask; anything else is rejected since the
// scheduler only arms weekly recurrences.
func FromRRule(ruleStr string) (Rule, error) {
	ruleStr = strings.TrimPrefix(strings.TrimSpace(ruleStr), "RRULE:")

	opt, err := rrule.StrToROption(ruleStr)
	if err != nil {
		return Rule{}, fmt.Errorf("recurrence: failed to parse RRULE: %w", err)
	}

	r := Rule{WeekdayMask: AllDays}

	switch opt.Freq {
	case rrule.WEEKLY:
		if len(opt.Byweekday) > 0 {
			r.WeekdayMask = 0
			for _, wd := range opt.Byweekday {
				// rrule-go numbers weekdays Monday-first.
				day := time.Weekday((wd.Day() + 1) % 7)
				r.WeekdayMask |= 1 << uint(day)
			}
		}
	case rrule.DAILY:
	default:
		return Rule{}, fmt.Errorf("recurrence: unsupported RRULE frequency in %q", ruleStr)
	}

	if opt.Interval > 1 {
		return Rule{}, fmt.Errorf("recurrence: unsupported RRULE interval %d", opt.Interval)
	}
	if len(opt.Byhour) > 0 {
		r.Hour = opt.Byhour[0]
	}
	if len(opt.Byminute) > 0 {
		r.Minute = opt.Byminute[0]
	}
	if !opt.Until.IsZero() {
		until := opt.Until.Local()
		end := time.Date(until.Year(), until.Month(), until.Day(), 0, 0, 0, 0, time.Local)
		r.EndDate = &end
	}
	if !opt.Dtstart.IsZero() {
		start := time.Date(opt.Dtstart.Year(), opt.Dtstart.Month(), opt.Dtstart.Day(), 0, 0, 0, 0, time.Local)
		r.StartDate = &start
	}

	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Describe returns a short Chinese description of the rule for listings.
func Describe(r Rule) string {
	var sb strings.Builder

	switch r.WeekdayMask {
	case 0:
		return "永不觸發"
	case AllDays:
		sb.WriteString("每天")
	default:
		chDay := map[time.Weekday]string{
			time.Sunday: "日", time.Monday: "一", time.Tuesday: "二",
			time.Wednesday: "三", time.Thursday: "四", time.Friday: "五",
			time.Saturday: "六",
		}
		var days []string
		for _, d := range r.Weekdays() {
			days = append(days, "週"+chDay[d])
		}
		sb.WriteString(strings.Join(days, "、"))
	}

	sb.WriteString(" " + r.TimeOfDay())

	if r.StartDate != nil {
		sb.WriteString(fmt.Sprintf("，自 %s 起", r.StartDate.Format("2006-01-02")))
	}
	if r.EndDate != nil {
		sb.WriteString(fmt.Sprintf("，直到 %s", r.EndDate.Format("2006-01-02")))
	}

	return sb.String()
}
