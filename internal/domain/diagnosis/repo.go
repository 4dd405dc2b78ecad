package diagnosis

import (
	"context"

	"github.com/google/uuid"

	"github.com/vitacare/portal/pkg/pagination"
)

type Repository interface {
	Create(ctx context.Context, d *AIDiagnosis) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*AIDiagnosis, int, error)
}
