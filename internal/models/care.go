package models

import "time"

type WeightEntry struct {
	WeightID   int64     `json:"weight_id"`
	CatID      int64     `json:"cat_id"`
	WeightKg   float64   `json:"weight_kg"`
	MeasuredAt time.Time `json:"measured_at"`
}

type FoodEntry struct {
	FoodID     int64     `json:"food_id"`
	CatID      int64     `json:"cat_id"`
	FoodType   string    `json:"food_type"` // dry, wet, treat, other
	BrandName  string    `json:"brand_name"`
	AmountGram int       `json:"amount_gram"`
	FedAt      time.Time `json:"fed_at"`
}

type DiaryNote struct {
	NoteID    int64     `json:"note_id"`
	CatID     int64     `json:"cat_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"` // general, health, behavior, vet_visit, other
	CreatedAt time.Time `json:"created_at"`
}
