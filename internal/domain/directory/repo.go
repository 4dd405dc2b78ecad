package directory

import (
	"context"

	"github.com/google/uuid"
)

// The directory is small and read-mostly: repositories return whole lists
// and the service filters and sorts in memory.
type DoctorRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	List(ctx context.Context) ([]*Doctor, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*Doctor, error)
	Upsert(ctx context.Context, d *Doctor) error
}

type HospitalRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Hospital, error)
	List(ctx context.Context) ([]*Hospital, error)
	Upsert(ctx context.Context, h *Hospital) error
}
