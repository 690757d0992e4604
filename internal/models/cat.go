package models

import "time"

type Cat struct {
	CatID     int64      `json:"cat_id"`
	UserID    int64      `json:"user_id"`
	Name      string     `json:"name"`
	Breed     string     `json:"breed"`
	BirthDate *time.Time `json:"birth_date"`
	CreatedAt time.Time  `json:"created_at"`
}
