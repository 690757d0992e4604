package recovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hray3182/PawLine/internal/alarm"
	"github.com/hray3182/PawLine/internal/models"
	"github.com/hray3182/PawLine/internal/recurrence"
)

type fakeTimers struct {
	mu     sync.Mutex
	armed  map[int32]alarm.Payload
	refuse map[int32]bool
}

func newFakeTimers() *fakeTimers {
	return &fakeTimers{armed: make(map[int32]alarm.Payload), refuse: make(map[int32]bool)}
}

func (f *fakeTimers) ScheduleOneShot(at time.Time, slot int32, payload alarm.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse[slot] {
		return alarm.ErrPermissionDenied
	}
	f.armed[slot] = payload
	return nil
}

func (f *fakeTimers) Cancel(slot int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.armed, slot)
}

func (f *fakeTimers) isArmed(slot int32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.armed[slot]
	return ok
}

type fakeSource struct {
	contexts []*models.ScheduleContext
	err      error
}

func (s *fakeSource) GetActiveContexts(context.Context) ([]*models.ScheduleContext, error) {
	return s.contexts, s.err
}

var bootInstant = time.Date(2024, 4, 2, 7, 30, 0, 0, time.Local) // Tuesday 07:30

func contextFor(id int64, rule recurrence.Rule) *models.ScheduleContext {
	return &models.ScheduleContext{
		Schedule:       models.MedicineSchedule{ScheduleID: id, MedicineID: id * 10, Rule: rule},
		MedicineName:   "藥",
		MedicineActive: true,
		CatName:        "小白",
		ChatID:         42,
	}
}

func TestRecoverAllArmsEverySchedule(t *testing.T) {
	timers := newFakeTimers()
	manager := alarm.NewManager(timers)
	manager.SetClock(func() time.Time { return bootInstant })

	source := &fakeSource{contexts: []*models.ScheduleContext{
		contextFor(1, recurrence.Rule{Hour: 9, WeekdayMask: recurrence.AllDays}),
		contextFor(2, recurrence.Rule{Hour: 20, WeekdayMask: recurrence.Tuesday}),
	}}

	svc := New(source, manager)
	if err := svc.RecoverAll(context.Background()); err != nil {
		t.Fatalf("RecoverAll: %v", err)
	}

	for _, id := range []int64{1, 2} {
		if !timers.isArmed(alarm.Slot(id, alarm.PrimaryAlarm)) {
			t.Fatalf("schedule %d not re-armed", id)
		}
	}
}

func TestRecoverAllSkipsSpentRules(t *testing.T) {
	timers := newFakeTimers()
	manager := alarm.NewManager(timers)
	manager.SetClock(func() time.Time { return bootInstant })

	yesterday := bootInstant.AddDate(0, 0, -1)
	source := &fakeSource{contexts: []*models.ScheduleContext{
		contextFor(1, recurrence.Rule{Hour: 9, WeekdayMask: recurrence.AllDays, EndDate: &yesterday}),
		contextFor(2, recurrence.Rule{Hour: 9, WeekdayMask: recurrence.AllDays}),
	}}

	svc := New(source, manager)
	if err := svc.RecoverAll(context.Background()); err != nil {
		t.Fatalf("RecoverAll: %v", err)
	}

	if timers.isArmed(alarm.Slot(1, alarm.PrimaryAlarm)) {
		t.Fatal("expired rule must not be armed")
	}
	if !timers.isArmed(alarm.Slot(2, alarm.PrimaryAlarm)) {
		t.Fatal("live rule should be armed")
	}
}

func TestRecoverAllOneFailureDoesNotAbortBatch(t *testing.T) {
	timers := newFakeTimers()
	timers.refuse[alarm.Slot(1, alarm.PrimaryAlarm)] = true

	manager := alarm.NewManager(timers)
	manager.SetClock(func() time.Time { return bootInstant })

	source := &fakeSource{contexts: []*models.ScheduleContext{
		contextFor(1, recurrence.Rule{Hour: 9, WeekdayMask: recurrence.AllDays}),
		contextFor(2, recurrence.Rule{Hour: 9, WeekdayMask: recurrence.AllDays}),
		contextFor(3, recurrence.Rule{Hour: 9, WeekdayMask: recurrence.AllDays}),
	}}

	svc := New(source, manager)
	if err := svc.RecoverAll(context.Background()); err != nil {
		t.Fatalf("RecoverAll should not fail on a single schedule: %v", err)
	}

	if timers.isArmed(alarm.Slot(1, alarm.PrimaryAlarm)) {
		t.Fatal("refused schedule should not be armed")
	}
	for _, id := range []int64{2, 3} {
		if !timers.isArmed(alarm.Slot(id, alarm.PrimaryAlarm)) {
			t.Fatalf("schedule %d should have been armed despite the earlier failure", id)
		}
	}
}

func TestRecoverAllIdempotent(t *testing.T) {
	timers := newFakeTimers()
	manager := alarm.NewManager(timers)
	manager.SetClock(func() time.Time { return bootInstant })

	source := &fakeSource{contexts: []*models.ScheduleContext{
		contextFor(1, recurrence.Rule{Hour: 9, WeekdayMask: recurrence.AllDays}),
	}}

	svc := New(source, manager)
	for i := 0; i < 3; i++ {
		if err := svc.RecoverAll(context.Background()); err != nil {
			t.Fatalf("RecoverAll #%d: %v", i+1, err)
		}
	}

	timers.mu.Lock()
	n := len(timers.armed)
	timers.mu.Unlock()
	if n != 1 {
		t.Fatalf("repeated recovery armed %d slots, want 1", n)
	}
}

func TestRecoverAllListFailure(t *testing.T) {
	manager := alarm.NewManager(newFakeTimers())
	source := &fakeSource{err: errors.New("connection refused")}

	if err := New(source, manager).RecoverAll(context.Background()); err == nil {
		t.Fatal("expected error when the schedule listing itself fails")
	}
}
