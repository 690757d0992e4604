package alarm

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hray3182/PawLine/internal/models"
	"github.com/hray3182/PawLine/internal/recurrence"
)

// ArmResult reports what Arm did: either a primary timer is pending at At,
// or the rule could not produce a future occurrence and any previously
// armed timer was canceled.
type ArmResult struct {
	Armed bool
	At    time.Time
}

// Manager owns the arm / re-arm / cancel lifecycle of the one-shot timers
// behind medicine schedules. It keeps no record of what is armed; armed
// state is always rederivable from the schedule rows plus the clock, which
// is what boot recovery relies on.
type Manager struct {
	timers TimerService
	now    func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewManager(timers TimerService) *Manager {
	return &Manager{
		timers: timers,
		now:    time.Now,
		locks:  make(map[int64]*sync.Mutex),
	}
}

// SetClock replaces the wall clock, for tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// lockFor serializes timer mutation per schedule id. Fire callbacks, UI
// edits, and boot recovery may race on the same schedule; different
// schedules stay fully parallel.
func (m *Manager) lockFor(scheduleID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[scheduleID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[scheduleID] = l
	}
	return l
}

// Arm resolves the schedule's next occurrence and arms its primary timer
// there. When the rule can no longer fire (expired bounds, empty mask) the
// primary timer is canceled instead, so a spent rule never leaves a stale
// wake-up behind. A refused request leaves the previous armed state
// untouched and is reported, not swallowed.
func (m *Manager) Arm(sched *models.MedicineSchedule, payload Payload) (ArmResult, error) {
	l := m.lockFor(sched.ScheduleID)
	l.Lock()
	defer l.Unlock()

	next, ok := recurrence.Next(sched.Rule, m.now())
	if !ok {
		m.timers.Cancel(Slot(sched.ScheduleID, PrimaryAlarm))
		log.Debug().Int64("schedule_id", sched.ScheduleID).Msg("rule has no future occurrence, primary timer canceled")
		return ArmResult{}, nil
	}

	payload.Snooze = false
	if err := m.timers.ScheduleOneShot(next, Slot(sched.ScheduleID, PrimaryAlarm), payload); err != nil {
		return ArmResult{}, fmt.Errorf("arming schedule %d: %w", sched.ScheduleID, err)
	}

	log.Debug().Int64("schedule_id", sched.ScheduleID).Time("at", next).Msg("primary timer armed")
	return ArmResult{Armed: true, At: next}, nil
}

// ArmSnooze arms the schedule's snooze timer minutes from now, independent
// of the recurrence rule and coexisting with the primary timer.
func (m *Manager) ArmSnooze(payload Payload, minutes int) (time.Time, error) {
	l := m.lockFor(payload.ScheduleID)
	l.Lock()
	defer l.Unlock()

	at := m.now().Add(time.Duration(minutes) * time.Minute)
	payload.Snooze = true
	if err := m.timers.ScheduleOneShot(at, Slot(payload.ScheduleID, SnoozeAlarm), payload); err != nil {
		return time.Time{}, fmt.Errorf("arming snooze for schedule %d: %w", payload.ScheduleID, err)
	}

	log.Debug().Int64("schedule_id", payload.ScheduleID).Time("at", at).Msg("snooze timer armed")
	return at, nil
}

// Cancel drops both the primary and snooze timers for the schedule.
// Canceling an unarmed slot is a no-op, so Cancel is idempotent.
func (m *Manager) Cancel(scheduleID int64) {
	l := m.lockFor(scheduleID)
	l.Lock()
	defer l.Unlock()

	m.timers.Cancel(Slot(scheduleID, PrimaryAlarm))
	m.timers.Cancel(Slot(scheduleID, SnoozeAlarm))
}

// PayloadFor builds the timer payload from a joined schedule context.
func PayloadFor(sc *models.ScheduleContext) Payload {
	return Payload{
		ScheduleID:   sc.Schedule.ScheduleID,
		MedicineID:   sc.Schedule.MedicineID,
		MedicineName: sc.MedicineName,
		CatName:      sc.CatName,
		Dosage:       sc.Dosage,
		ChatID:       sc.ChatID,
	}
}
