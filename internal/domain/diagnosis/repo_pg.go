package diagnosis

import (
	"context"

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

const diagnosisCols = `id, patient_id, image_url, condition, confidence, severity, recommended_specialist, advice, precautions, created_at`

func scanDiagnosis(row pgx.Row) (*AIDiagnosis, error) {
	var d AIDiagnosis
	err := row.Scan(&d.ID, &d.PatientID, &d.ImageURL, &d.Condition, &d.Confidence, &d.Severity,
		&d.RecommendedSpecialist, &d.Advice, &d.Precautions, &d.CreatedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *AIDiagnosis) error {
	d.ID = uuid.New()
	if d.Precautions == nil {
		d.Precautions = []string{}
	}
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO ai_diagnoses (id, patient_id, image_url, condition, confidence, severity, recommended_specialist, advice, precautions)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		d.ID, d.PatientID, d.ImageURL, d.Condition, d.Confidence, d.Severity, d.RecommendedSpecialist, d.Advice, d.Precautions,
	).Scan(&d.CreatedAt)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*AIDiagnosis, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM ai_diagnoses WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, `SELECT `+diagnosisCols+` FROM ai_diagnoses WHERE patient_id = $1 `+
		p.Sort.OrderBy()+` `+p.SQL(), patientID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*AIDiagnosis
	for rows.Next() {
		d, err := scanDiagnosis(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
