package recurrence

import (
	"strings"
	"testing"
	"time"
)

func TestToRRule(t *testing.T) {
	rule := Rule{Hour: 9, Minute: 0, WeekdayMask: Monday | Wednesday | Friday}
	got := ToRRule(rule)
	want := "RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR;BYHOUR=9;BYMINUTE=0"
	if got != want {
		t.Fatalf("ToRRule = %q, want %q", got, want)
	}

	daily := Rule{Hour: 21, Minute: 30, WeekdayMask: AllDays}
	got = ToRRule(daily)
	if strings.Contains(got, "BYDAY") {
		t.Fatalf("full-week rule should omit BYDAY: %q", got)
	}
}

func TestFromRRuleWeekly(t *testing.T) {
	rule, err := FromRRule("RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR;BYHOUR=9;BYMINUTE=15")
	if err != nil {
		t.Fatalf("FromRRule: %v", err)
	}
	if rule.WeekdayMask != Monday|Wednesday|Friday {
		t.Fatalf("mask = %#b", rule.WeekdayMask)
	}
	if rule.Hour != 9 || rule.Minute != 15 {
		t.Fatalf("time = %02d:%02d", rule.Hour, rule.Minute)
	}
}

func TestFromRRuleDailyMeansAllDays(t *testing.T) {
	rule, err := FromRRule("FREQ=DAILY;BYHOUR=8;BYMINUTE=0")
	if err != nil {
		t.Fatalf("FromRRule: %v", err)
	}
	if rule.WeekdayMask != AllDays {
		t.Fatalf("mask = %#b, want all days", rule.WeekdayMask)
	}
}

func TestFromRRuleUntil(t *testing.T) {
	rule, err := FromRRule("RRULE:FREQ=WEEKLY;BYDAY=SU;BYHOUR=10;BYMINUTE=0;UNTIL=20251231T000000Z")
	if err != nil {
		t.Fatalf("FromRRule: %v", err)
	}
	if rule.EndDate == nil {
		t.Fatal("expected end date from UNTIL")
	}
	if rule.WeekdayMask != Sunday {
		t.Fatalf("mask = %#b, want Sunday", rule.WeekdayMask)
	}
}

func TestFromRRuleRejectsUnsupported(t *testing.T) {
	for _, in := range []string{
		"RRULE:FREQ=MONTHLY;BYMONTHDAY=1",
		"RRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=MO",
		"not an rrule",
	} {
		if _, err := FromRRule(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestRRuleRoundTrip(t *testing.T) {
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.Local)
	orig := Rule{Hour: 18, Minute: 45, WeekdayMask: Tuesday | Thursday, EndDate: &end}

	back, err := FromRRule(ToRRule(orig))
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if back.WeekdayMask != orig.WeekdayMask || back.Hour != orig.Hour || back.Minute != orig.Minute {
		t.Fatalf("round trip changed rule: %+v -> %+v", orig, back)
	}
	if back.EndDate == nil {
		t.Fatal("round trip lost end date")
	}
}

func TestDescribe(t *testing.T) {
	rule := Rule{Hour: 9, Minute: 0, WeekdayMask: Monday | Wednesday | Friday}
	got := Describe(rule)
	for _, frag := range []string{"週一", "週三", "週五", "09:00"} {
		if !strings.Contains(got, frag) {
			t.Fatalf("Describe = %q, missing %q", got, frag)
		}
	}

	if got := Describe(Rule{Hour: 9, WeekdayMask: 0}); got != "永不觸發" {
		t.Fatalf("Describe(empty mask) = %q", got)
	}

	daily := Describe(Rule{Hour: 21, Minute: 30, WeekdayMask: AllDays})
	if !strings.HasPrefix(daily, "每天") {
		t.Fatalf("Describe(all days) = %q", daily)
	}
}
