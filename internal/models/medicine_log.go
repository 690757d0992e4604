package models

import "time"

// MedicineLog is one append-only administration record: written when the
// caregiver marks a dose given or explicitly skips it, never for snoozes
// or dismissals.
type MedicineLog struct {
	LogID          int64     `json:"log_id"`
	MedicineID     int64     `json:"medicine_id"`
	AdministeredAt time.Time `json:"administered_at"`
	WasSkipped     bool      `json:"was_skipped"`
	Note           string    `json:"note"`
}
