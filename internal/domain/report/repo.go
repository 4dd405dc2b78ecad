package report

import (
	"context"

	"github.com/google/uuid"

	"github.com/vitacare/portal/pkg/pagination"
)

type Repository interface {
	Create(ctx context.Context, r *MedicalReport) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalReport, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*MedicalReport, int, error)
	CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error)
}
