package report

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

const reportCols = `id, patient_id, blob_id, file_name, file_url, file_type, report_type, report_date, notes, created_at`

func scanReport(row pgx.Row) (*MedicalReport, error) {
	var r MedicalReport
	err := row.Scan(&r.ID, &r.PatientID, &r.BlobID, &r.FileName, &r.FileURL, &r.FileType,
		&r.ReportType, &r.ReportDate, &r.Notes, &r.CreatedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &r, nil
}

func (r *repoPG) Create(ctx context.Context, m *MedicalReport) error {
	m.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO medical_reports (id, patient_id, blob_id, file_name, file_url, file_type, report_type, report_date, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		m.ID, m.PatientID, m.BlobID, m.FileName, m.FileURL, m.FileType, m.ReportType, m.ReportDate, m.Notes,
	).Scan(&m.CreatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalReport, error) {
	return scanReport(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+reportCols+` FROM medical_reports WHERE id = $1`, id))
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM medical_reports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*MedicalReport, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM medical_reports WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn.Query(ctx, `SELECT `+reportCols+` FROM medical_reports WHERE patient_id = $1 `+
		p.Sort.OrderBy()+` `+p.SQL(), patientID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*MedicalReport
	for rows.Next() {
		m, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *repoPG) CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM medical_reports WHERE patient_id = $1`, patientID).Scan(&n)
	return n, err
}
