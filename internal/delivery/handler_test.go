package delivery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hray3182/PawLine/internal/alarm"
	"github.com/hray3182/PawLine/internal/models"
	"github.com/hray3182/PawLine/internal/notify"
	"github.com/hray3182/PawLine/internal/recurrence"
)

type fakeTimers struct {
	mu    sync.Mutex
	armed map[int32]alarm.Payload
	ats   map[int32]time.Time
}

func newFakeTimers() *fakeTimers {
	return &fakeTimers{armed: make(map[int32]alarm.Payload), ats: make(map[int32]time.Time)}
}

func (f *fakeTimers) ScheduleOneShot(at time.Time, slot int32, payload alarm.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed[slot] = payload
	f.ats[slot] = at
	return nil
}

func (f *fakeTimers) Cancel(slot int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.armed, slot)
	delete(f.ats, slot)
}

func (f *fakeTimers) payload(slot int32) (alarm.Payload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.armed[slot]
	return p, ok
}

type fakeScheduleStore struct {
	mu       sync.Mutex
	contexts map[int64]*models.ScheduleContext
}

func (s *fakeScheduleStore) GetContext(_ context.Context, scheduleID int64) (*models.ScheduleContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contexts[scheduleID], nil
}

type fakeLogStore struct {
	mu      sync.Mutex
	entries []*models.MedicineLog
}

func (s *fakeLogStore) Append(_ context.Context, entry *models.MedicineLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	shown    []notify.Reminder
	canceled []int32
	visible  map[int32]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{visible: make(map[int32]bool)}
}

func (n *fakeNotifier) Show(_ context.Context, r notify.Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = append(n.shown, r)
	n.visible[r.NotificationID] = true
	return nil
}

func (n *fakeNotifier) Cancel(_ context.Context, id int32) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.canceled = append(n.canceled, id)
	delete(n.visible, id)
	return nil
}

// Monday 2024-04-01 09:00 local: the reminder's fire instant.
var fireInstant = time.Date(2024, 4, 1, 9, 0, 0, 0, time.Local)

type fixture struct {
	timers    *fakeTimers
	schedules *fakeScheduleStore
	logs      *fakeLogStore
	notifier  *fakeNotifier
	manager   *alarm.Manager
	handler   *Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	timers := newFakeTimers()
	manager := alarm.NewManager(timers)
	manager.SetClock(func() time.Time { return fireInstant })

	schedules := &fakeScheduleStore{contexts: make(map[int64]*models.ScheduleContext)}
	logs := &fakeLogStore{}
	notifier := newFakeNotifier()

	h := NewHandler(schedules, logs, manager, notifier, 15)
	h.SetClock(func() time.Time { return fireInstant.Add(2 * time.Minute) })

	return &fixture{timers: timers, schedules: schedules, logs: logs, notifier: notifier, manager: manager, handler: h}
}

func (f *fixture) addSchedule(id int64, rule recurrence.Rule) *models.ScheduleContext {
	sc := &models.ScheduleContext{
		Schedule:       models.MedicineSchedule{ScheduleID: id, MedicineID: id * 10, Rule: rule},
		MedicineName:   "心絲蟲藥",
		Dosage:         "1 錠",
		MedicineActive: true,
		CatName:        "小白",
		ChatID:         42,
	}
	f.schedules.mu.Lock()
	f.schedules.contexts[id] = sc
	f.schedules.mu.Unlock()
	return sc
}

func firePayload(id int64) alarm.Payload {
	return alarm.Payload{
		ScheduleID: id, MedicineID: id * 10,
		MedicineName: "心絲蟲藥", CatName: "小白", Dosage: "1 錠", ChatID: 42,
	}
}

func dailyAtNine() recurrence.Rule {
	return recurrence.Rule{Hour: 9, WeekdayMask: recurrence.AllDays}
}

func TestFireShowsAndReArms(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(1, dailyAtNine())

	f.handler.HandleFire(context.Background(), firePayload(1))

	if len(f.notifier.shown) != 1 {
		t.Fatalf("shown %d notifications, want 1", len(f.notifier.shown))
	}
	shown := f.notifier.shown[0]
	if shown.MedicineName != "心絲蟲藥" || shown.CatName != "小白" || shown.ChatID != 42 {
		t.Fatalf("notification lost display context: %+v", shown)
	}

	// Next regular occurrence armed immediately, before any user action.
	at, ok := f.timers.ats[alarm.Slot(1, alarm.PrimaryAlarm)]
	if !ok {
		t.Fatal("primary timer not re-armed at fire")
	}
	want := fireInstant.AddDate(0, 0, 1) // Tuesday 09:00
	if !at.Equal(want) {
		t.Fatalf("re-armed at %v, want %v", at, want)
	}
}

func TestFireOnDeletedScheduleIsNoOp(t *testing.T) {
	f := newFixture(t)
	// No schedule stored: deleted between arming and firing.

	f.handler.HandleFire(context.Background(), firePayload(2))

	if _, ok := f.timers.payload(alarm.Slot(2, alarm.PrimaryAlarm)); ok {
		t.Fatal("stale schedule must not re-arm")
	}
	if f.notifier.visible[alarm.Slot(2, alarm.Notification)] {
		t.Fatal("notification for a deleted schedule should have been dismissed")
	}
}

func TestFireOnInactiveMedicineCancels(t *testing.T) {
	f := newFixture(t)
	sc := f.addSchedule(3, dailyAtNine())
	sc.MedicineActive = false

	f.handler.HandleFire(context.Background(), firePayload(3))

	if _, ok := f.timers.payload(alarm.Slot(3, alarm.PrimaryAlarm)); ok {
		t.Fatal("inactive medicine must not re-arm")
	}
}

func TestMarkGivenAppendsLogAndDismisses(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(4, dailyAtNine())
	f.handler.HandleFire(context.Background(), firePayload(4))

	if err := f.handler.MarkGiven(context.Background(), 4); err != nil {
		t.Fatalf("MarkGiven: %v", err)
	}

	if len(f.logs.entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(f.logs.entries))
	}
	entry := f.logs.entries[0]
	if entry.WasSkipped {
		t.Fatal("mark given must not be recorded as skipped")
	}
	if entry.MedicineID != 40 {
		t.Fatalf("log medicine id = %d, want 40", entry.MedicineID)
	}
	if f.notifier.visible[alarm.Slot(4, alarm.Notification)] {
		t.Fatal("notification still visible after acknowledgment")
	}
	// Primary re-arm from the fire survives the acknowledgment.
	if _, ok := f.timers.payload(alarm.Slot(4, alarm.PrimaryAlarm)); !ok {
		t.Fatal("primary timer lost after acknowledgment")
	}
}

func TestMarkGivenDuplicateAppendsAgain(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(5, dailyAtNine())

	if err := f.handler.MarkGiven(context.Background(), 5); err != nil {
		t.Fatalf("MarkGiven: %v", err)
	}
	if err := f.handler.MarkGiven(context.Background(), 5); err != nil {
		t.Fatalf("duplicate MarkGiven: %v", err)
	}
	if len(f.logs.entries) != 2 {
		t.Fatalf("log entries = %d, want 2 (append-only history)", len(f.logs.entries))
	}
}

func TestMarkGivenStaleScheduleSkipsLog(t *testing.T) {
	f := newFixture(t)

	if err := f.handler.MarkGiven(context.Background(), 6); err != nil {
		t.Fatalf("MarkGiven: %v", err)
	}
	if len(f.logs.entries) != 0 {
		t.Fatal("stale schedule must not write a log entry")
	}
}

func TestMarkSkipped(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(7, dailyAtNine())

	if err := f.handler.MarkSkipped(context.Background(), 7, "嘔吐"); err != nil {
		t.Fatalf("MarkSkipped: %v", err)
	}
	if len(f.logs.entries) != 1 || !f.logs.entries[0].WasSkipped {
		t.Fatalf("expected one skipped entry, got %+v", f.logs.entries)
	}
	if f.logs.entries[0].Note != "嘔吐" {
		t.Fatalf("note = %q", f.logs.entries[0].Note)
	}
}

func TestSnoozeArmsSnoozeSlotWithOriginalContext(t *testing.T) {
	f := newFixture(t)
	sc := f.addSchedule(8, dailyAtNine())
	f.handler.HandleFire(context.Background(), firePayload(8))

	// Schedule edited between fire and snooze: the snoozed reminder must
	// still carry what the caregiver saw.
	sc.MedicineName = "renamed"

	at, err := f.handler.Snooze(context.Background(), 8)
	if err != nil {
		t.Fatalf("Snooze: %v", err)
	}
	want := fireInstant.Add(15 * time.Minute)
	if !at.Equal(want) {
		t.Fatalf("snooze at %v, want %v", at, want)
	}

	p, ok := f.timers.payload(alarm.Slot(8, alarm.SnoozeAlarm))
	if !ok {
		t.Fatal("snooze slot not armed")
	}
	if p.MedicineName != "心絲蟲藥" {
		t.Fatalf("snooze payload = %q, want original fire context", p.MedicineName)
	}
	if !p.Snooze {
		t.Fatal("snooze payload not flagged")
	}

	// Regular re-arm coexists with the snooze timer.
	if _, ok := f.timers.payload(alarm.Slot(8, alarm.PrimaryAlarm)); !ok {
		t.Fatal("primary timer lost after snooze")
	}
	if f.notifier.visible[alarm.Slot(8, alarm.Notification)] {
		t.Fatal("notification still visible after snooze")
	}
}

func TestSnoozeFireDoesNotReArmAgain(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(9, dailyAtNine())

	f.handler.HandleFire(context.Background(), firePayload(9))
	primaryBefore := f.timers.ats[alarm.Slot(9, alarm.PrimaryAlarm)]

	if _, err := f.handler.Snooze(context.Background(), 9); err != nil {
		t.Fatalf("Snooze: %v", err)
	}

	// The snooze timer reaches its instant.
	snoozed, _ := f.timers.payload(alarm.Slot(9, alarm.SnoozeAlarm))
	f.handler.HandleFire(context.Background(), snoozed)

	if len(f.notifier.shown) != 2 {
		t.Fatalf("shown %d notifications, want 2 (original + snoozed)", len(f.notifier.shown))
	}
	if !f.notifier.shown[1].Snoozed {
		t.Fatal("second notification should be flagged as snoozed")
	}

	primaryAfter := f.timers.ats[alarm.Slot(9, alarm.PrimaryAlarm)]
	if !primaryAfter.Equal(primaryBefore) {
		t.Fatalf("snooze fire moved the primary timer: %v -> %v", primaryBefore, primaryAfter)
	}
}

func TestSnoozeAfterRestartFallsBackToStorage(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(10, dailyAtNine())

	// No HandleFire recorded (fresh process); the snooze action arrives
	// from a notification that survived the restart.
	if _, err := f.handler.Snooze(context.Background(), 10); err != nil {
		t.Fatalf("Snooze: %v", err)
	}
	p, ok := f.timers.payload(alarm.Slot(10, alarm.SnoozeAlarm))
	if !ok {
		t.Fatal("snooze slot not armed")
	}
	if p.MedicineName != "心絲蟲藥" {
		t.Fatalf("snooze payload = %q, want storage context", p.MedicineName)
	}
}

func TestSnoozeStaleScheduleIsNoOp(t *testing.T) {
	f := newFixture(t)

	at, err := f.handler.Snooze(context.Background(), 11)
	if err != nil {
		t.Fatalf("Snooze: %v", err)
	}
	if !at.IsZero() {
		t.Fatal("stale snooze should not arm")
	}
	if _, ok := f.timers.payload(alarm.Slot(11, alarm.SnoozeAlarm)); ok {
		t.Fatal("stale schedule must not arm a snooze timer")
	}
}
