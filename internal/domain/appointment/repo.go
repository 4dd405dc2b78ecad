package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vitacare/portal/pkg/pagination"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, f ListFilter, p pagination.Params) ([]*Appointment, int, error)
	// ListDueReminders returns unreminded active appointments dated between
	// from and to inclusive.
	ListDueReminders(ctx context.Context, from, to string) ([]*Appointment, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error
}
