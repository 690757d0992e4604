package recurrence

import "time"

// Next resolves the first instant strictly after now at which the rule
// occurs. The second return is false when the rule can never fire again:
// the end date has passed, the mask is empty, or the bounds leave no
// qualifying day. That is an expected outcome, not an error.
func Next(r Rule, now time.Time) (time.Time, bool) {
	if r.EndDate != nil && compareDate(now, *r.EndDate) > 0 {
		return time.Time{}, false
	}

	// Rule has not started yet: scan from the start date itself.
	if r.StartDate != nil && compareDate(now, *r.StartDate) < 0 {
		sy, sm, sd := r.StartDate.Date()
		first := time.Date(sy, sm, sd, 0, 0, 0, 0, now.Location())
		return r.scan(first)
	}

	// Today qualifies only with a strictly future time of day.
	if r.OccursOn(now.Weekday()) {
		if at := r.At(now); at.After(now) {
			return at, true
		}
	}

	return r.scan(now.AddDate(0, 0, 1))
}

// scan walks up to a full week starting at from, returning the first day
// whose weekday bit is set, bounded by the end date.
func (r Rule) scan(from time.Time) (time.Time, bool) {
	day := from
	for i := 0; i < 7; i++ {
		if r.EndDate != nil && compareDate(day, *r.EndDate) > 0 {
			return time.Time{}, false
		}
		if r.OccursOn(day.Weekday()) {
			return r.At(day), true
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}
