package healthplan

import (
	"context"

	"github.com/google/uuid"

	"github.com/vitacare/portal/pkg/pagination"
)

type Repository interface {
	// Create inserts the plan and its tasks.
	Create(ctx context.Context, p *HealthPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*HealthPlan, error)
	// Lock reads the plan row FOR UPDATE, without tasks.
	Lock(ctx context.Context, id uuid.UUID) (*HealthPlan, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*HealthPlan, int, error)
	// Active is the newest active plan of the patient.
	Active(ctx context.Context, patientID uuid.UUID) (*HealthPlan, error)
	ArchiveActive(ctx context.Context, patientID uuid.UUID) error
	ToggleTask(ctx context.Context, planID, taskID uuid.UUID) error
	CountTasks(ctx context.Context, planID uuid.UUID) (done, total int, err error)
	SetProgress(ctx context.Context, planID uuid.UUID, progress int) error
}
