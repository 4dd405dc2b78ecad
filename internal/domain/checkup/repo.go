package checkup

import (
	"context"

	"github.com/google/uuid"

	"github.com/vitacare/portal/pkg/pagination"
)

type Repository interface {
	Create(ctx context.Context, c *HealthCheckup) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*HealthCheckup, int, error)
	Latest(ctx context.Context, patientID uuid.UUID) (*HealthCheckup, error)
}
