package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hray3182/PawLine/internal/database"
	"github.com/hray3182/PawLine/internal/models"
	"github.com/hray3182/PawLine/internal/recurrence"
)

type ScheduleRepository struct {
	db *database.DB
}

func NewScheduleRepository(db *database.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleContextQuery = `
	SELECT s.schedule_id, s.medicine_id, s.scheduled_time, s.days_of_week,
	       s.start_date, s.end_date, s.created_at,
	       m.name, m.dosage, m.is_active, c.name, c.user_id
	FROM medicine_schedules s
	JOIN medicines m ON m.medicine_id = s.medicine_id
	JOIN cats c ON c.cat_id = m.cat_id`

func (r *ScheduleRepository) Create(ctx context.Context, sched *models.MedicineSchedule) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO medicine_schedules (medicine_id, scheduled_time, days_of_week, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING schedule_id, created_at`,
		sched.MedicineID, timeOfDay(sched.Rule), sched.Rule.WeekdayMask, sched.Rule.StartDate, sched.Rule.EndDate,
	).Scan(&sched.ScheduleID, &sched.CreatedAt)
}

// Update replaces the rule wholesale; edits never patch fields in place.
func (r *ScheduleRepository) Update(ctx context.Context, sched *models.MedicineSchedule) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE medicine_schedules
		 SET scheduled_time = $1, days_of_week = $2, start_date = $3, end_date = $4
		 WHERE schedule_id = $5`,
		timeOfDay(sched.Rule), sched.Rule.WeekdayMask, sched.Rule.StartDate, sched.Rule.EndDate, sched.ScheduleID,
	)
	return err
}

func (r *ScheduleRepository) Delete(ctx context.Context, scheduleID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM medicine_schedules WHERE schedule_id = $1`,
		scheduleID,
	)
	return err
}

func (r *ScheduleRepository) GetByMedicineID(ctx context.Context, medicineID int64) ([]*models.MedicineSchedule, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT schedule_id, medicine_id, scheduled_time, days_of_week, start_date, end_date, created_at
		 FROM medicine_schedules WHERE medicine_id = $1 ORDER BY schedule_id ASC`,
		medicineID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scheds []*models.MedicineSchedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		scheds = append(scheds, sched)
	}
	return scheds, nil
}

// GetIDsByCatID lists every schedule id under a cat, for canceling armed
// timers before a cascade delete.
func (r *ScheduleRepository) GetIDsByCatID(ctx context.Context, catID int64) ([]int64, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT s.schedule_id
		 FROM medicine_schedules s JOIN medicines m ON m.medicine_id = s.medicine_id
		 WHERE m.cat_id = $1`,
		catID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *ScheduleRepository) GetIDsByMedicineID(ctx context.Context, medicineID int64) ([]int64, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT schedule_id FROM medicine_schedules WHERE medicine_id = $1`,
		medicineID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

// GetContext reads one schedule joined with its display fields. Returns
// (nil, nil) when the schedule no longer exists, which delivery treats as
// an expected deletion race rather than an error.
func (r *ScheduleRepository) GetContext(ctx context.Context, scheduleID int64) (*models.ScheduleContext, error) {
	row := r.db.Pool.QueryRow(ctx, scheduleContextQuery+` WHERE s.schedule_id = $1`, scheduleID)
	sc, err := scanContext(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// GetActiveContexts lists every schedule of every active medicine across
// all caregivers, for boot recovery.
func (r *ScheduleRepository) GetActiveContexts(ctx context.Context) ([]*models.ScheduleContext, error) {
	rows, err := r.db.Pool.Query(ctx, scheduleContextQuery+` WHERE m.is_active = TRUE ORDER BY s.schedule_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContexts(rows)
}

func (r *ScheduleRepository) GetContextsByUserID(ctx context.Context, userID int64) ([]*models.ScheduleContext, error) {
	rows, err := r.db.Pool.Query(ctx, scheduleContextQuery+` WHERE c.user_id = $1 ORDER BY s.schedule_id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContexts(rows)
}

func scanSchedule(row pgx.Row) (*models.MedicineSchedule, error) {
	sched := &models.MedicineSchedule{}
	var tod pgtype.Time
	err := row.Scan(&sched.ScheduleID, &sched.MedicineID, &tod, &sched.Rule.WeekdayMask,
		&sched.Rule.StartDate, &sched.Rule.EndDate, &sched.CreatedAt)
	if err != nil {
		return nil, err
	}
	sched.Rule.Hour, sched.Rule.Minute = splitTimeOfDay(tod)
	return sched, nil
}

func scanContext(row pgx.Row) (*models.ScheduleContext, error) {
	sc := &models.ScheduleContext{}
	var tod pgtype.Time
	err := row.Scan(&sc.Schedule.ScheduleID, &sc.Schedule.MedicineID, &tod, &sc.Schedule.Rule.WeekdayMask,
		&sc.Schedule.Rule.StartDate, &sc.Schedule.Rule.EndDate, &sc.Schedule.CreatedAt,
		&sc.MedicineName, &sc.Dosage, &sc.MedicineActive, &sc.CatName, &sc.ChatID)
	if err != nil {
		return nil, err
	}
	sc.Schedule.Rule.Hour, sc.Schedule.Rule.Minute = splitTimeOfDay(tod)
	return sc, nil
}

func scanContexts(rows pgx.Rows) ([]*models.ScheduleContext, error) {
	var contexts []*models.ScheduleContext
	for rows.Next() {
		sc, err := scanContext(rows)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, sc)
	}
	return contexts, rows.Err()
}

func scanIDs(rows pgx.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// timeOfDay converts the rule's wall-clock time into a TIME column value.
func timeOfDay(rule recurrence.Rule) pgtype.Time {
	micros := (int64(rule.Hour)*3600 + int64(rule.Minute)*60) * 1_000_000
	return pgtype.Time{Microseconds: micros, Valid: true}
}

func splitTimeOfDay(t pgtype.Time) (hour, minute int) {
	seconds := t.Microseconds / 1_000_000
	return int(seconds / 3600), int(seconds % 3600 / 60)
}
