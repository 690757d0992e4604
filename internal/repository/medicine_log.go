package repository

import (
	"context"
	"time"

	"github.com/hray3182/PawLine/internal/database"
	"github.com/hray3182/PawLine/internal/models"
)

type MedicineLogRepository struct {
	db *database.DB
}

func NewMedicineLogRepository(db *database.DB) *MedicineLogRepository {
	return &MedicineLogRepository{db: db}
}

// Append writes one administration record. The log is append-only history;
// nothing ever updates or deletes entries.
func (r *MedicineLogRepository) Append(ctx context.Context, entry *models.MedicineLog) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO medicine_logs (medicine_id, administered_at, was_skipped, note)
		 VALUES ($1, $2, $3, $4)
		 RETURNING log_id`,
		entry.MedicineID, entry.AdministeredAt, entry.WasSkipped, entry.Note,
	).Scan(&entry.LogID)
}

type LogRow struct {
	Entry        models.MedicineLog
	MedicineName string
	CatName      string
}

func (r *MedicineLogRepository) GetRecentByUserID(ctx context.Context, userID int64, limit int) ([]*LogRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT l.log_id, l.medicine_id, l.administered_at, l.was_skipped, l.note, m.name, c.name
		 FROM medicine_logs l
		 JOIN medicines m ON m.medicine_id = l.medicine_id
		 JOIN cats c ON c.cat_id = m.cat_id
		 WHERE c.user_id = $1
		 ORDER BY l.administered_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*LogRow
	for rows.Next() {
		row := &LogRow{}
		if err := rows.Scan(&row.Entry.LogID, &row.Entry.MedicineID, &row.Entry.AdministeredAt,
			&row.Entry.WasSkipped, &row.Entry.Note, &row.MedicineName, &row.CatName); err != nil {
			return nil, err
		}
		logs = append(logs, row)
	}
	return logs, rows.Err()
}

func (r *MedicineLogRepository) GetByMedicineID(ctx context.Context, medicineID int64, since time.Time) ([]*models.MedicineLog, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT log_id, medicine_id, administered_at, was_skipped, note
		 FROM medicine_logs WHERE medicine_id = $1 AND administered_at >= $2
		 ORDER BY administered_at DESC`,
		medicineID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.MedicineLog
	for rows.Next() {
		entry := &models.MedicineLog{}
		if err := rows.Scan(&entry.LogID, &entry.MedicineID, &entry.AdministeredAt, &entry.WasSkipped, &entry.Note); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
