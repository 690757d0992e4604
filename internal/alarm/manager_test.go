package alarm

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hray3182/PawLine/internal/models"
	"github.com/hray3182/PawLine/internal/recurrence"
)

// fakeTimers records every schedule/cancel call, the in-memory stand-in for
// the external timer service.
type fakeTimers struct {
	mu        sync.Mutex
	armed     map[int32]Payload
	instants  map[int32]time.Time
	cancels   []int32
	refuseAll bool
}

func newFakeTimers() *fakeTimers {
	return &fakeTimers{armed: make(map[int32]Payload), instants: make(map[int32]time.Time)}
}

func (f *fakeTimers) ScheduleOneShot(at time.Time, slot int32, payload Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuseAll {
		return ErrPermissionDenied
	}
	f.armed[slot] = payload
	f.instants[slot] = at
	return nil
}

func (f *fakeTimers) Cancel(slot int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, slot)
	delete(f.armed, slot)
	delete(f.instants, slot)
}

func (f *fakeTimers) armedAt(slot int32) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.instants[slot]
	return at, ok
}

// Tuesday 2024-04-02 08:00 local.
var tuesdayMorning = time.Date(2024, 4, 2, 8, 0, 0, 0, time.Local)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testSchedule(id int64, rule recurrence.Rule) *models.MedicineSchedule {
	return &models.MedicineSchedule{ScheduleID: id, MedicineID: id * 10, Rule: rule}
}

func TestManagerArmUsesResolvedInstant(t *testing.T) {
	timers := newFakeTimers()
	m := NewManager(timers)
	m.SetClock(fixedClock(tuesdayMorning))

	sched := testSchedule(1, recurrence.Rule{
		Hour: 9, WeekdayMask: recurrence.Monday | recurrence.Wednesday | recurrence.Friday,
	})
	res, err := m.Arm(sched, Payload{ScheduleID: 1, MedicineName: "insulin"})
	if err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if !res.Armed {
		t.Fatal("expected schedule to be armed")
	}

	want := time.Date(2024, 4, 3, 9, 0, 0, 0, time.Local) // Wednesday 09:00
	if !res.At.Equal(want) {
		t.Fatalf("armed at %v, want %v", res.At, want)
	}
	at, ok := timers.armedAt(Slot(1, PrimaryAlarm))
	if !ok || !at.Equal(want) {
		t.Fatalf("timer service saw %v (armed=%v), want %v", at, ok, want)
	}
}

func TestManagerArmSpentRuleCancelsPrimary(t *testing.T) {
	timers := newFakeTimers()
	m := NewManager(timers)
	m.SetClock(fixedClock(tuesdayMorning))

	active := testSchedule(2, recurrence.Rule{Hour: 9, WeekdayMask: recurrence.AllDays})
	if _, err := m.Arm(active, Payload{ScheduleID: 2}); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	yesterday := tuesdayMorning.AddDate(0, 0, -1)
	active.Rule.EndDate = &yesterday
	res, err := m.Arm(active, Payload{ScheduleID: 2})
	if err != nil {
		t.Fatalf("Arm spent rule: %v", err)
	}
	if res.Armed {
		t.Fatal("spent rule must not arm")
	}
	if _, ok := timers.armedAt(Slot(2, PrimaryAlarm)); ok {
		t.Fatal("previously armed timer should have been canceled")
	}
}

func TestManagerArmEmptyMaskIsNotAnError(t *testing.T) {
	timers := newFakeTimers()
	m := NewManager(timers)
	m.SetClock(fixedClock(tuesdayMorning))

	res, err := m.Arm(testSchedule(3, recurrence.Rule{Hour: 9}), Payload{ScheduleID: 3})
	if err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if res.Armed {
		t.Fatal("empty mask must not arm")
	}
}

func TestManagerArmPermissionDenied(t *testing.T) {
	timers := newFakeTimers()
	timers.refuseAll = true
	m := NewManager(timers)
	m.SetClock(fixedClock(tuesdayMorning))

	sched := testSchedule(4, recurrence.Rule{Hour: 9, WeekdayMask: recurrence.AllDays})
	res, err := m.Arm(sched, Payload{ScheduleID: 4})
	if err == nil {
		t.Fatal("expected permission error")
	}
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("error %v does not wrap ErrPermissionDenied", err)
	}
	if res.Armed {
		t.Fatal("refused arm must not report armed")
	}
}

func TestManagerArmSnooze(t *testing.T) {
	timers := newFakeTimers()
	m := NewManager(timers)
	m.SetClock(fixedClock(tuesdayMorning))

	at, err := m.ArmSnooze(Payload{ScheduleID: 5, MedicineName: "drops"}, 15)
	if err != nil {
		t.Fatalf("ArmSnooze: %v", err)
	}
	want := tuesdayMorning.Add(15 * time.Minute)
	if !at.Equal(want) {
		t.Fatalf("snooze at %v, want %v", at, want)
	}

	p, ok := timers.armed[Slot(5, SnoozeAlarm)]
	if !ok {
		t.Fatal("snooze slot not armed")
	}
	if !p.Snooze {
		t.Fatal("snooze payload not flagged")
	}
	if _, ok := timers.armed[Slot(5, PrimaryAlarm)]; ok {
		t.Fatal("snooze must not touch the primary slot")
	}
}

func TestManagerSnoozeCoexistsWithPrimary(t *testing.T) {
	timers := newFakeTimers()
	m := NewManager(timers)
	m.SetClock(fixedClock(tuesdayMorning))

	sched := testSchedule(6, recurrence.Rule{Hour: 9, WeekdayMask: recurrence.AllDays})
	if _, err := m.Arm(sched, Payload{ScheduleID: 6}); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if _, err := m.ArmSnooze(Payload{ScheduleID: 6}, 15); err != nil {
		t.Fatalf("ArmSnooze: %v", err)
	}

	if _, ok := timers.armedAt(Slot(6, PrimaryAlarm)); !ok {
		t.Fatal("primary timer lost")
	}
	if _, ok := timers.armedAt(Slot(6, SnoozeAlarm)); !ok {
		t.Fatal("snooze timer lost")
	}
}

func TestManagerCancelIdempotent(t *testing.T) {
	timers := newFakeTimers()
	m := NewManager(timers)
	m.SetClock(fixedClock(tuesdayMorning))

	sched := testSchedule(7, recurrence.Rule{Hour: 9, WeekdayMask: recurrence.AllDays})
	if _, err := m.Arm(sched, Payload{ScheduleID: 7}); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if _, err := m.ArmSnooze(Payload{ScheduleID: 7}, 15); err != nil {
		t.Fatalf("ArmSnooze: %v", err)
	}

	m.Cancel(7)
	if _, ok := timers.armedAt(Slot(7, PrimaryAlarm)); ok {
		t.Fatal("primary timer survived cancel")
	}
	if _, ok := timers.armedAt(Slot(7, SnoozeAlarm)); ok {
		t.Fatal("snooze timer survived cancel")
	}

	before := len(timers.cancels)
	m.Cancel(7)
	if len(timers.cancels) != before+2 {
		t.Fatal("second cancel should still issue idempotent cancel calls")
	}
}
