package checkup

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

const checkupCols = `id, patient_id, responses, risk_score, risk_level, areas_of_concern, recommendations, created_at`

func scanCheckup(row pgx.Row) (*HealthCheckup, error) {
	var c HealthCheckup
	err := row.Scan(&c.ID, &c.PatientID, &c.Responses, &c.RiskScore, &c.RiskLevel,
		&c.AreasOfConcern, &c.Recommendations, &c.CreatedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *HealthCheckup) error {
	c.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO health_checkups (id, patient_id, responses, risk_score, risk_level, areas_of_concern, recommendations)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		c.ID, c.PatientID, c.Responses, c.RiskScore, c.RiskLevel, c.AreasOfConcern, c.Recommendations,
	).Scan(&c.CreatedAt)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*HealthCheckup, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM health_checkups WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, `SELECT `+checkupCols+` FROM health_checkups WHERE patient_id = $1 `+
		p.Sort.OrderBy()+` `+p.SQL(), patientID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*HealthCheckup
	for rows.Next() {
		c, err := scanCheckup(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Latest(ctx context.Context, patientID uuid.UUID) (*HealthCheckup, error) {
	return scanCheckup(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+checkupCols+` FROM health_checkups WHERE patient_id = $1 ORDER BY created_at DESC LIMIT 1`, patientID))
}
