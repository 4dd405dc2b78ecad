package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitacare/portal/internal/platform/db"
)

// PGStore keeps blobs in the blobs table as bytea. Files are capped at
// MaxFileSize so whole-row reads are acceptable.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const blobCols = `id, owner, file_name, content_type, size, created_at`

func (s *PGStore) Put(ctx context.Context, meta Metadata, content io.Reader) (*Metadata, error) {
	data, err := readContent(&meta, content)
	if err != nil {
		return nil, err
	}
	_, err = db.Conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO blobs (id, owner, file_name, content_type, size, data, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		meta.ID, meta.Owner, meta.FileName, meta.ContentType, meta.Size, data, meta.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *PGStore) Get(ctx context.Context, id uuid.UUID) ([]byte, *Metadata, error) {
	var m Metadata
	var data []byte
	err := db.Conn(ctx, s.pool).QueryRow(ctx, `SELECT `+blobCols+`, data FROM blobs WHERE id = $1`, id).
		Scan(&m.ID, &m.Owner, &m.FileName, &m.ContentType, &m.Size, &m.CreatedAt, &data)
	if err != nil {
		return nil, nil, notFound(err)
	}
	return data, &m, nil
}

func (s *PGStore) Stat(ctx context.Context, id uuid.UUID) (*Metadata, error) {
	var m Metadata
	err := db.Conn(ctx, s.pool).QueryRow(ctx, `SELECT `+blobCols+` FROM blobs WHERE id = $1`, id).
		Scan(&m.ID, &m.Owner, &m.FileName, &m.ContentType, &m.Size, &m.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *PGStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, s.pool).Exec(ctx, `DELETE FROM blobs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlobNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrBlobNotFound
	}
	return err
}
