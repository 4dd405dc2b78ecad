package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/pkg/pagination"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const apptCols = `id, patient_id, patient_name, patient_email, doctor_id, doctor_name, hospital_id, hospital_name,
	specialization, to_char(appointment_date, 'YYYY-MM-DD'), appointment_time, appointment_type, symptoms,
	consultation_fee, status, reminder_sent_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.PatientEmail, &a.DoctorID, &a.DoctorName,
		&a.HospitalID, &a.HospitalName, &a.Specialization, &a.AppointmentDate, &a.AppointmentTime,
		&a.AppointmentType, &a.Symptoms, &a.ConsultationFee, &a.Status, &a.ReminderSentAt,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, patient_name, patient_email, doctor_id, doctor_name,
			hospital_id, hospital_name, specialization, appointment_date, appointment_time,
			appointment_type, symptoms, consultation_fee, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10::date,$11,$12,$13,$14,$15)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.PatientName, a.PatientEmail, a.DoctorID, a.DoctorName,
		a.HospitalID, a.HospitalName, a.Specialization, a.AppointmentDate, a.AppointmentTime,
		a.AppointmentType, a.Symptoms, a.ConsultationFee, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, f ListFilter, p pagination.Params) ([]*Appointment, int, error) {
	where := []string{"patient_id = $1"}
	args := []interface{}{patientID}
	if len(f.Statuses) > 0 {
		args = append(args, f.Statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if f.FromDate != "" {
		args = append(args, f.FromDate)
		where = append(where, fmt.Sprintf("appointment_date >= $%d::date", len(args)))
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM appointments`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn.Query(ctx, `SELECT `+apptCols+` FROM appointments`+clause+" "+orderBy(p.Sort)+" "+p.SQL(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

// orderBy sorts by date then slot; slot strings are 12-hour so they are
// ordered through their parsed time.
func orderBy(s pagination.Sort) string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	if s.Field == "appointment_date" {
		return fmt.Sprintf("ORDER BY appointment_date %s, to_timestamp(appointment_time, 'HH12:MI AM')::time %s, id %s", dir, dir, dir)
	}
	return s.OrderBy()
}

func (r *repoPG) ListDueReminders(ctx context.Context, from, to string) ([]*Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+apptCols+` FROM appointments
		WHERE reminder_sent_at IS NULL
		  AND status = ANY($1)
		  AND appointment_date BETWEEN $2::date AND $3::date
		ORDER BY appointment_date, id`, ActiveStatuses, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE appointments SET reminder_sent_at = $2 WHERE id = $1 AND reminder_sent_at IS NULL`, id, at)
	return err
}
