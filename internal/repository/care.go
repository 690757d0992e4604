package repository

import (
	"context"

	"github.com/hray3182/PawLine/internal/database"
	"github.com/hray3182/PawLine/internal/models"
)

type WeightRepository struct {
	db *database.DB
}

func NewWeightRepository(db *database.DB) *WeightRepository {
	return &WeightRepository{db: db}
}

func (r *WeightRepository) Create(ctx context.Context, entry *models.WeightEntry) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO weight_entries (cat_id, weight_kg, measured_at)
		 VALUES ($1, $2, $3)
		 RETURNING weight_id`,
		entry.CatID, entry.WeightKg, entry.MeasuredAt,
	).Scan(&entry.WeightID)
}

func (r *WeightRepository) GetByCatID(ctx context.Context, catID int64, limit int) ([]*models.WeightEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT weight_id, cat_id, weight_kg, measured_at
		 FROM weight_entries WHERE cat_id = $1
		 ORDER BY measured_at DESC LIMIT $2`,
		catID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.WeightEntry
	for rows.Next() {
		entry := &models.WeightEntry{}
		if err := rows.Scan(&entry.WeightID, &entry.CatID, &entry.WeightKg, &entry.MeasuredAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type FoodRepository struct {
	db *database.DB
}

func NewFoodRepository(db *database.DB) *FoodRepository {
	return &FoodRepository{db: db}
}

func (r *FoodRepository) Create(ctx context.Context, entry *models.FoodEntry) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO food_entries (cat_id, food_type, brand_name, amount_gram, fed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING food_id`,
		entry.CatID, entry.FoodType, entry.BrandName, entry.AmountGram, entry.FedAt,
	).Scan(&entry.FoodID)
}

func (r *FoodRepository) GetByCatID(ctx context.Context, catID int64, limit int) ([]*models.FoodEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT food_id, cat_id, food_type, brand_name, amount_gram, fed_at
		 FROM food_entries WHERE cat_id = $1
		 ORDER BY fed_at DESC LIMIT $2`,
		catID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.FoodEntry
	for rows.Next() {
		entry := &models.FoodEntry{}
		if err := rows.Scan(&entry.FoodID, &entry.CatID, &entry.FoodType, &entry.BrandName, &entry.AmountGram, &entry.FedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type DiaryRepository struct {
	db *database.DB
}

func NewDiaryRepository(db *database.DB) *DiaryRepository {
	return &DiaryRepository{db: db}
}

func (r *DiaryRepository) Create(ctx context.Context, note *models.DiaryNote) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO diary_notes (cat_id, title, content, category)
		 VALUES ($1, $2, $3, $4)
		 RETURNING note_id, created_at`,
		note.CatID, note.Title, note.Content, note.Category,
	).Scan(&note.NoteID, &note.CreatedAt)
}

func (r *DiaryRepository) GetByCatID(ctx context.Context, catID int64, limit int) ([]*models.DiaryNote, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT note_id, cat_id, title, content, category, created_at
		 FROM diary_notes WHERE cat_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		catID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*models.DiaryNote
	for rows.Next() {
		note := &models.DiaryNote{}
		if err := rows.Scan(&note.NoteID, &note.CatID, &note.Title, &note.Content, &note.Category, &note.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}
