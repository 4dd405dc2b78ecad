package emergency

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Request, error)
	// ListActive returns every request that has not arrived or been cancelled.
	ListActive(ctx context.Context) ([]*Request, error)
	// UpdateStatus moves the request forward to status. It returns
	// ErrInvalidTransition when the stored status is terminal or not behind
	// status, which is how a stale tracker learns it lost the request.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress float64) error
	// Claim takes or renews the tracking lease of an open request for owner.
	// It reports false when another owner holds a live lease or the request
	// is terminal.
	Claim(ctx context.Context, id, owner uuid.UUID, lease time.Duration) (bool, error)
	// Release drops every lease held by owner.
	Release(ctx context.Context, owner uuid.UUID) error
	AddHistory(ctx context.Context, id uuid.UUID, status string) error
	History(ctx context.Context, id uuid.UUID) ([]*StatusChange, error)
}
