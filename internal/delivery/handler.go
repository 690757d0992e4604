package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hray3182/PawLine/internal/alarm"
	"github.com/hray3182/PawLine/internal/models"
	"github.com/hray3182/PawLine/internal/notify"
)

// ScheduleStore is the slice of the schedule repository the handler needs:
// re-reading a schedule with its display context. A nil result with nil
// error means the schedule no longer exists.
type ScheduleStore interface {
	GetContext(ctx context.Context, scheduleID int64) (*models.ScheduleContext, error)
}

// LogStore appends administration records.
type LogStore interface {
	Append(ctx context.Context, entry *models.MedicineLog) error
}

// Handler runs the reminder state machine: a timer fire shows the
// notification and immediately re-arms the next regular occurrence; the
// caregiver then acknowledges, snoozes, or ignores it. Re-arming happens at
// fire time, not at acknowledgment, so the next occurrence is never lost on
// a reminder nobody responds to.
type Handler struct {
	schedules     ScheduleStore
	logs          LogStore
	alarms        *alarm.Manager
	notifier      notify.Notifier
	snoozeMinutes int
	now           func() time.Time

	mu    sync.Mutex
	fired map[int64]alarm.Payload // display context of the last fire, per schedule
}

func NewHandler(schedules ScheduleStore, logs LogStore, alarms *alarm.Manager, notifier notify.Notifier, snoozeMinutes int) *Handler {
	if snoozeMinutes <= 0 {
		snoozeMinutes = 15
	}
	return &Handler{
		schedules:     schedules,
		logs:          logs,
		alarms:        alarms,
		notifier:      notifier,
		snoozeMinutes: snoozeMinutes,
		now:           time.Now,
		fired:         make(map[int64]alarm.Payload),
	}
}

// SetClock replaces the wall clock, for tests.
func (h *Handler) SetClock(now func() time.Time) {
	h.now = now
}

// HandleFire is the timer-fire transition. The notification renders from
// the payload alone, so a cold-started process needs no storage read to
// show it. A primary fire then re-arms the next regular occurrence before
// any user action is processed; a snooze fire only redisplays — its
// regular re-arm already happened at the original fire.
func (h *Handler) HandleFire(ctx context.Context, p alarm.Payload) {
	note := notify.Reminder{
		NotificationID: alarm.Slot(p.ScheduleID, alarm.Notification),
		ChatID:         p.ChatID,
		ScheduleID:     p.ScheduleID,
		MedicineID:     p.MedicineID,
		MedicineName:   p.MedicineName,
		CatName:        p.CatName,
		Dosage:         p.Dosage,
		Snoozed:        p.Snooze,
		SnoozeMinutes:  h.snoozeMinutes,
	}
	if err := h.notifier.Show(ctx, note); err != nil {
		log.Error().Err(err).Int64("schedule_id", p.ScheduleID).Msg("failed to show reminder")
	}

	h.mu.Lock()
	h.fired[p.ScheduleID] = p
	h.mu.Unlock()

	if p.Snooze {
		return
	}

	sc, err := h.schedules.GetContext(ctx, p.ScheduleID)
	if err != nil {
		log.Error().Err(err).Int64("schedule_id", p.ScheduleID).Msg("failed to re-read schedule after fire")
		return
	}
	if sc == nil || !sc.MedicineActive {
		// Deleted or deactivated between arming and firing: drop the
		// residual timers and take back the notification.
		h.alarms.Cancel(p.ScheduleID)
		h.dismiss(ctx, p.ScheduleID)
		return
	}

	if res, err := h.alarms.Arm(&sc.Schedule, alarm.PayloadFor(sc)); err != nil {
		log.Error().Err(err).Int64("schedule_id", p.ScheduleID).Msg("failed to re-arm after fire")
	} else if res.Armed {
		log.Info().Int64("schedule_id", p.ScheduleID).Time("next", res.At).Msg("re-armed next occurrence")
	}
}

// MarkGiven is the acknowledgment transition: append a log entry and
// dismiss the notification. A stale schedule id degrades to cancel+dismiss
// with no log write. Duplicate acknowledgments append duplicate history
// entries, which the append-only log tolerates.
func (h *Handler) MarkGiven(ctx context.Context, scheduleID int64) error {
	sc, err := h.schedules.GetContext(ctx, scheduleID)
	if err != nil {
		return err
	}
	if sc == nil {
		h.alarms.Cancel(scheduleID)
		h.dismiss(ctx, scheduleID)
		return nil
	}

	entry := &models.MedicineLog{
		MedicineID:     sc.Schedule.MedicineID,
		AdministeredAt: h.now(),
		WasSkipped:     false,
	}
	if err := h.logs.Append(ctx, entry); err != nil {
		return err
	}

	h.clearFired(scheduleID)
	h.dismiss(ctx, scheduleID)
	log.Info().Int64("schedule_id", scheduleID).Int64("medicine_id", sc.Schedule.MedicineID).Msg("dose marked given")
	return nil
}

// MarkSkipped records an explicitly skipped dose with an optional note.
func (h *Handler) MarkSkipped(ctx context.Context, scheduleID int64, note string) error {
	sc, err := h.schedules.GetContext(ctx, scheduleID)
	if err != nil {
		return err
	}
	if sc == nil {
		h.alarms.Cancel(scheduleID)
		h.dismiss(ctx, scheduleID)
		return nil
	}

	entry := &models.MedicineLog{
		MedicineID:     sc.Schedule.MedicineID,
		AdministeredAt: h.now(),
		WasSkipped:     true,
		Note:           note,
	}
	if err := h.logs.Append(ctx, entry); err != nil {
		return err
	}

	h.clearFired(scheduleID)
	h.dismiss(ctx, scheduleID)
	return nil
}

// Snooze dismisses the current notification and arms the snooze timer with
// the display context of the original fire — the schedule row may have been
// edited or deleted since, and the snoozed reminder must still read like
// the one the caregiver saw.
func (h *Handler) Snooze(ctx context.Context, scheduleID int64) (time.Time, error) {
	h.mu.Lock()
	p, ok := h.fired[scheduleID]
	h.mu.Unlock()

	if !ok {
		// Process restarted between fire and snooze; fall back to storage.
		sc, err := h.schedules.GetContext(ctx, scheduleID)
		if err != nil {
			return time.Time{}, err
		}
		if sc == nil {
			h.alarms.Cancel(scheduleID)
			h.dismiss(ctx, scheduleID)
			return time.Time{}, nil
		}
		p = alarm.PayloadFor(sc)
	}

	h.dismiss(ctx, scheduleID)
	at, err := h.alarms.ArmSnooze(p, h.snoozeMinutes)
	if err != nil {
		return time.Time{}, err
	}
	log.Info().Int64("schedule_id", scheduleID).Time("at", at).Msg("reminder snoozed")
	return at, nil
}

// SnoozeMinutes exposes the configured snooze interval for display.
func (h *Handler) SnoozeMinutes() int {
	return h.snoozeMinutes
}

func (h *Handler) dismiss(ctx context.Context, scheduleID int64) {
	if err := h.notifier.Cancel(ctx, alarm.Slot(scheduleID, alarm.Notification)); err != nil {
		log.Warn().Err(err).Int64("schedule_id", scheduleID).Msg("failed to dismiss reminder")
	}
}

func (h *Handler) clearFired(scheduleID int64) {
	h.mu.Lock()
	delete(h.fired, scheduleID)
	h.mu.Unlock()
}
