package directory

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitacare/portal/internal/platform/db"
)

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

const doctorCols = `id, name, specialization, hospital_id, hospital_name, experience_years,
	rating, reviews_count, consultation_fee, qualification, languages, available_days,
	available_slots, bio, image_url, created_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Specialization, &d.HospitalID, &d.HospitalName, &d.ExperienceYears,
		&d.Rating, &d.ReviewsCount, &d.ConsultationFee, &d.Qualification, &d.Languages, &d.AvailableDays,
		&d.AvailableSlots, &d.Bio, &d.ImageURL, &d.CreatedAt)
	return &d, err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := scanDoctor(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
	if err != nil {
		return nil, db.NotFound(err)
	}
	return d, nil
}

func (r *doctorRepoPG) List(ctx context.Context) ([]*Doctor, error) {
	return r.query(ctx, `SELECT `+doctorCols+` FROM doctors ORDER BY rating DESC, name`)
}

func (r *doctorRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Doctor, error) {
	return r.query(ctx, `SELECT `+doctorCols+` FROM doctors WHERE hospital_id = $1 ORDER BY rating DESC, name`, hospitalID)
}

func (r *doctorRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Doctor, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *doctorRepoPG) Upsert(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO doctors (id, name, specialization, hospital_id, hospital_name, experience_years,
			rating, reviews_count, consultation_fee, qualification, languages, available_days,
			available_slots, bio, image_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, specialization=EXCLUDED.specialization,
			hospital_id=EXCLUDED.hospital_id, hospital_name=EXCLUDED.hospital_name,
			experience_years=EXCLUDED.experience_years, rating=EXCLUDED.rating,
			reviews_count=EXCLUDED.reviews_count, consultation_fee=EXCLUDED.consultation_fee,
			qualification=EXCLUDED.qualification, languages=EXCLUDED.languages,
			available_days=EXCLUDED.available_days, available_slots=EXCLUDED.available_slots,
			bio=EXCLUDED.bio, image_url=EXCLUDED.image_url`,
		d.ID, d.Name, d.Specialization, d.HospitalID, d.HospitalName, d.ExperienceYears,
		d.Rating, d.ReviewsCount, d.ConsultationFee, d.Qualification, nonNil(d.Languages), nonNil(d.AvailableDays),
		nonNil(d.AvailableSlots), d.Bio, d.ImageURL)
	return err
}

// =========== Hospital Repository ===========

type hospitalRepoPG struct{ pool *pgxpool.Pool }

func NewHospitalRepoPG(pool *pgxpool.Pool) HospitalRepository {
	return &hospitalRepoPG{pool: pool}
}

const hospitalCols = `id, name, address, city, state, region, phone, rating, specialties,
	facilities, emergency_available, image_url, created_at`

func scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	err := row.Scan(&h.ID, &h.Name, &h.Address, &h.City, &h.State, &h.Region, &h.Phone, &h.Rating, &h.Specialties,
		&h.Facilities, &h.EmergencyAvailable, &h.ImageURL, &h.CreatedAt)
	return &h, err
}

func (r *hospitalRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	h, err := scanHospital(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+hospitalCols+` FROM hospitals WHERE id = $1`, id))
	if err != nil {
		return nil, db.NotFound(err)
	}
	return h, nil
}

func (r *hospitalRepoPG) List(ctx context.Context) ([]*Hospital, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+hospitalCols+` FROM hospitals ORDER BY rating DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Hospital
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

func (r *hospitalRepoPG) Upsert(ctx context.Context, h *Hospital) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO hospitals (id, name, address, city, state, region, phone, rating, specialties,
			facilities, emergency_available, image_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, address=EXCLUDED.address, city=EXCLUDED.city,
			state=EXCLUDED.state, region=EXCLUDED.region, phone=EXCLUDED.phone, rating=EXCLUDED.rating,
			specialties=EXCLUDED.specialties, facilities=EXCLUDED.facilities,
			emergency_available=EXCLUDED.emergency_available, image_url=EXCLUDED.image_url`,
		h.ID, h.Name, h.Address, h.City, h.State, h.Region, h.Phone, h.Rating, nonNil(h.Specialties),
		nonNil(h.Facilities), h.EmergencyAvailable, h.ImageURL)
	return err
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
