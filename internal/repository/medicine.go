package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/hray3182/PawLine/internal/database"
	"github.com/hray3182/PawLine/internal/models"
)

type MedicineRepository struct {
	db *database.DB
}

func NewMedicineRepository(db *database.DB) *MedicineRepository {
	return &MedicineRepository{db: db}
}

func (r *MedicineRepository) Create(ctx context.Context, med *models.Medicine) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO medicines (cat_id, name, dosage, instructions, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING medicine_id, created_at`,
		med.CatID, med.Name, med.Dosage, med.Instructions, med.IsActive,
	).Scan(&med.MedicineID, &med.CreatedAt)
}

func (r *MedicineRepository) GetByCatID(ctx context.Context, catID int64) ([]*models.Medicine, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT medicine_id, cat_id, name, dosage, instructions, is_active, created_at
		 FROM medicines WHERE cat_id = $1 ORDER BY medicine_id ASC`,
		catID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meds []*models.Medicine
	for rows.Next() {
		med := &models.Medicine{}
		if err := rows.Scan(&med.MedicineID, &med.CatID, &med.Name, &med.Dosage, &med.Instructions, &med.IsActive, &med.CreatedAt); err != nil {
			return nil, err
		}
		meds = append(meds, med)
	}
	return meds, nil
}

// GetByID scopes through the cat's owner so one caregiver cannot touch
// another's records.
func (r *MedicineRepository) GetByID(ctx context.Context, medicineID int64, userID int64) (*models.Medicine, error) {
	med := &models.Medicine{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT m.medicine_id, m.cat_id, m.name, m.dosage, m.instructions, m.is_active, m.created_at
		 FROM medicines m JOIN cats c ON c.cat_id = m.cat_id
		 WHERE m.medicine_id = $1 AND c.user_id = $2`,
		medicineID, userID,
	).Scan(&med.MedicineID, &med.CatID, &med.Name, &med.Dosage, &med.Instructions, &med.IsActive, &med.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return med, nil
}

func (r *MedicineRepository) GetByName(ctx context.Context, userID int64, name string) (*models.Medicine, error) {
	med := &models.Medicine{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT m.medicine_id, m.cat_id, m.name, m.dosage, m.instructions, m.is_active, m.created_at
		 FROM medicines m JOIN cats c ON c.cat_id = m.cat_id
		 WHERE c.user_id = $1 AND m.name ILIKE $2
		 ORDER BY m.medicine_id ASC LIMIT 1`,
		userID, name,
	).Scan(&med.MedicineID, &med.CatID, &med.Name, &med.Dosage, &med.Instructions, &med.IsActive, &med.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return med, nil
}

func (r *MedicineRepository) SetActive(ctx context.Context, medicineID int64, active bool) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE medicines SET is_active = $1 WHERE medicine_id = $2`,
		active, medicineID,
	)
	return err
}

func (r *MedicineRepository) Delete(ctx context.Context, medicineID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM medicines WHERE medicine_id = $1`,
		medicineID,
	)
	return err
}
