package alarm

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrPermissionDenied is surfaced by TimerService implementations that
	// cannot grant an exact wake-up. Callers treat it as non-fatal: the
	// schedule record stays valid, only the timer is missing.
	ErrPermissionDenied = errors.New("alarm: exact scheduling not permitted")

	ErrEngineStopped = errors.New("alarm: engine stopped")
)

// Payload is the context carried by an armed timer: everything needed to
// render the reminder when it fires, without a storage read.
type Payload struct {
	ScheduleID   int64  `json:"schedule_id"`
	MedicineID   int64  `json:"medicine_id"`
	MedicineName string `json:"medicine_name"`
	CatName      string `json:"cat_name"`
	Dosage       string `json:"dosage"`
	ChatID       int64  `json:"chat_id"`
	Snooze       bool   `json:"snooze"`
}

// TimerService is the external one-shot timer boundary. Scheduling on an
// already armed slot replaces the previous wake-up; Cancel on an unarmed
// slot is a no-op. Delivery is best-effort exact and may be refused with
// ErrPermissionDenied.
type TimerService interface {
	ScheduleOneShot(at time.Time, slot int32, payload Payload) error
	Cancel(slot int32)
}

// FireFunc receives the payload of a timer that reached its instant.
type FireFunc func(Payload)

// Engine is the in-process TimerService: one time.AfterFunc per armed slot.
// It holds no durable state; after a restart every slot is empty until boot
// recovery re-arms it.
type Engine struct {
	mu      sync.Mutex
	timers  map[int32]*time.Timer
	fire    FireFunc
	stopped bool
}

func NewEngine() *Engine {
	return &Engine{timers: make(map[int32]*time.Timer)}
}

// Bind sets the fire callback. Must be called before the first timer fires;
// wiring order in main makes the engine exist before its consumer.
func (e *Engine) Bind(fire FireFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fire = fire
}

func (e *Engine) ScheduleOneShot(at time.Time, slot int32, payload Payload) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrEngineStopped
	}

	if old, ok := e.timers[slot]; ok {
		old.Stop()
	}

	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	e.timers[slot] = time.AfterFunc(d, func() { e.fired(slot, payload) })
	return nil
}

func (e *Engine) fired(slot int32, payload Payload) {
	e.mu.Lock()
	delete(e.timers, slot)
	fire := e.fire
	stopped := e.stopped
	e.mu.Unlock()

	if stopped || fire == nil {
		return
	}
	fire(payload)
}

func (e *Engine) Cancel(slot int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.timers[slot]; ok {
		t.Stop()
		delete(e.timers, slot)
	}
}

// Armed reports whether a slot currently holds a pending timer.
func (e *Engine) Armed(slot int32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.timers[slot]
	return ok
}

// Stop cancels every pending timer and refuses further scheduling.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	for slot, t := range e.timers {
		t.Stop()
		delete(e.timers, slot)
	}
}
