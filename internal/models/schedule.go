package models

import (
	"time"

	"github.com/hray3182/PawLine/internal/recurrence"
)

// MedicineSchedule attaches one weekly recurrence rule to a medicine. Its
// id keys every armed timer and notification slot for the schedule, so it
// is never reused after deletion.
type MedicineSchedule struct {
	ScheduleID int64           `json:"schedule_id"`
	MedicineID int64           `json:"medicine_id"`
	Rule       recurrence.Rule `json:"rule"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ScheduleContext is a schedule joined with the display fields a reminder
// needs: medicine name and dosage, the cat's name, and the caregiver's
// chat. Read once when arming so the payload can render without a fresh
// storage round trip at fire time.
type ScheduleContext struct {
	Schedule       MedicineSchedule `json:"schedule"`
	MedicineName   string           `json:"medicine_name"`
	Dosage         string           `json:"dosage"`
	MedicineActive bool             `json:"medicine_active"`
	CatName        string           `json:"cat_name"`
	ChatID         int64            `json:"chat_id"`
}
