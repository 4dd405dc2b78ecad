package emergency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitacare/portal/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const requestCols = `id, patient_id, latitude, longitude, location_approximate, emergency_type, status,
	estimated_arrival, progress, created_at, updated_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.PatientID, &r.Latitude, &r.Longitude, &r.LocationApproximate, &r.EmergencyType,
		&r.Status, &r.EstimatedArrival, &r.Progress, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, db.NotFound(err)
	}
	return &r, nil
}

func (r *repoPG) Create(ctx context.Context, req *Request) error {
	req.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO emergency_requests (id, patient_id, latitude, longitude, location_approximate,
			emergency_type, status, estimated_arrival, progress)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		req.ID, req.PatientID, req.Latitude, req.Longitude, req.LocationApproximate,
		req.EmergencyType, req.Status, req.EstimatedArrival, req.Progress,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	return scanRequest(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+requestCols+` FROM emergency_requests WHERE id = $1`, id))
}

func (r *repoPG) list(ctx context.Context, query string, args ...interface{}) ([]*Request, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, req)
	}
	return items, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Request, error) {
	return r.list(ctx, `SELECT `+requestCols+` FROM emergency_requests WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT $2`, patientID, limit)
}

func (r *repoPG) ListActive(ctx context.Context) ([]*Request, error) {
	return r.list(ctx, `SELECT `+requestCols+` FROM emergency_requests
		WHERE status NOT IN ('arrived', 'cancelled') ORDER BY created_at`)
}

// statusOrder mirrors statusRank for the guarded update.
const statusOrder = `ARRAY['requested','dispatched','en_route','arrived','cancelled']`

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress float64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE emergency_requests SET status = $2, progress = $3, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('arrived', 'cancelled')
		  AND array_position(`+statusOrder+`, status) < array_position(`+statusOrder+`, $2::text)`,
		id, status, progress)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: request %s cannot move to %s", ErrInvalidTransition, id, status)
	}
	return nil
}

func (r *repoPG) Claim(ctx context.Context, id, owner uuid.UUID, lease time.Duration) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE emergency_requests SET owner = $2, lease_until = NOW() + make_interval(secs => $3)
		WHERE id = $1 AND status NOT IN ('arrived', 'cancelled')
		  AND (owner IS NULL OR owner = $2 OR lease_until < NOW())`,
		id, owner, lease.Seconds())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) Release(ctx context.Context, owner uuid.UUID) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE emergency_requests SET owner = NULL, lease_until = NULL WHERE owner = $1`, owner)
	return err
}

func (r *repoPG) AddHistory(ctx context.Context, id uuid.UUID, status string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO emergency_status_history (request_id, status) VALUES ($1, $2)`, id, status)
	return err
}

func (r *repoPG) History(ctx context.Context, id uuid.UUID) ([]*StatusChange, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, request_id, status, changed_at FROM emergency_status_history
		WHERE request_id = $1 ORDER BY changed_at, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*StatusChange
	for rows.Next() {
		var c StatusChange
		if err := rows.Scan(&c.ID, &c.RequestID, &c.Status, &c.ChangedAt); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}
	return items, rows.Err()
}
