package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/hray3182/PawLine/internal/database"
	"github.com/hray3182/PawLine/internal/models"
)

type CatRepository struct {
	db *database.DB
}

func NewCatRepository(db *database.DB) *CatRepository {
	return &CatRepository{db: db}
}

func (r *CatRepository) Create(ctx context.Context, cat *models.Cat) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO cats (user_id, name, breed, birth_date)
		 VALUES ($1, $2, $3, $4)
		 RETURNING cat_id, created_at`,
		cat.UserID, cat.Name, cat.Breed, cat.BirthDate,
	).Scan(&cat.CatID, &cat.CreatedAt)
}

func (r *CatRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Cat, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT cat_id, user_id, name, breed, birth_date, created_at
		 FROM cats WHERE user_id = $1 ORDER BY cat_id ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []*models.Cat
	for rows.Next() {
		cat := &models.Cat{}
		if err := rows.Scan(&cat.CatID, &cat.UserID, &cat.Name, &cat.Breed, &cat.BirthDate, &cat.CreatedAt); err != nil {
			return nil, err
		}
		cats = append(cats, cat)
	}
	return cats, nil
}

func (r *CatRepository) GetByID(ctx context.Context, catID int64, userID int64) (*models.Cat, error) {
	cat := &models.Cat{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT cat_id, user_id, name, breed, birth_date, created_at
		 FROM cats WHERE cat_id = $1 AND user_id = $2`,
		catID, userID,
	).Scan(&cat.CatID, &cat.UserID, &cat.Name, &cat.Breed, &cat.BirthDate, &cat.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cat, nil
}

func (r *CatRepository) GetByName(ctx context.Context, userID int64, name string) (*models.Cat, error) {
	cat := &models.Cat{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT cat_id, user_id, name, breed, birth_date, created_at
		 FROM cats WHERE user_id = $1 AND name ILIKE $2
		 ORDER BY cat_id ASC LIMIT 1`,
		userID, name,
	).Scan(&cat.CatID, &cat.UserID, &cat.Name, &cat.Breed, &cat.BirthDate, &cat.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cat, nil
}

func (r *CatRepository) Delete(ctx context.Context, catID int64, userID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM cats WHERE cat_id = $1 AND user_id = $2`,
		catID, userID,
	)
	return err
}
