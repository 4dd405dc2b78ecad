package wellness

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitacare/portal/internal/platform/db"
)

type tipRepoPG struct{ pool *pgxpool.Pool }

func NewTipRepoPG(pool *pgxpool.Pool) TipRepository {
	return &tipRepoPG{pool: pool}
}

func (r *tipRepoPG) Latest(ctx context.Context, limit int) ([]*Tip, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT id, title, content, category, created_at FROM health_tips ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Tip
	for rows.Next() {
		var t Tip
		if err := rows.Scan(&t.ID, &t.Title, &t.Content, &t.Category, &t.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &t)
	}
	return items, rows.Err()
}

func (r *tipRepoPG) Create(ctx context.Context, t *Tip) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO health_tips (id, title, content, category) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		t.ID, t.Title, t.Content, t.Category).Scan(&t.CreatedAt)
}
