package models

import "time"

type Medicine struct {
	MedicineID   int64     `json:"medicine_id"`
	CatID        int64     `json:"cat_id"`
	Name         string    `json:"name"`
	Dosage       string    `json:"dosage"`
	Instructions string    `json:"instructions"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
