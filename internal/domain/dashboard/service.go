// Package dashboard assembles the patient's landing view from the other
// domains.
package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vitacare/portal/internal/domain/appointment"
	"github.com/vitacare/portal/internal/domain/checkup"
	"github.com/vitacare/portal/internal/domain/diagnosis"
	"github.com/vitacare/portal/internal/domain/healthplan"
	"github.com/vitacare/portal/internal/domain/patient"
	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/pkg/pagination"
)

const upcomingLimit = 3

type Patients interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Appointments interface {
	Upcoming(ctx context.Context, patientID uuid.UUID, limit int) ([]*appointment.Appointment, error)
	Count(ctx context.Context, patientID uuid.UUID) (int, error)
}

type Reports interface {
	Count(ctx context.Context, patientID uuid.UUID) (int, error)
}

type Diagnoses interface {
	List(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*diagnosis.AIDiagnosis, int, error)
}

type Checkups interface {
	List(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*checkup.HealthCheckup, int, error)
	Latest(ctx context.Context, patientID uuid.UUID) (*checkup.HealthCheckup, error)
}

type Plans interface {
	Active(ctx context.Context, patientID uuid.UUID) (*healthplan.HealthPlan, error)
}

type Stats struct {
	Appointments    int     `json:"appointments"`
	Reports         int     `json:"reports"`
	Diagnoses       int     `json:"diagnoses"`
	Checkups        int     `json:"checkups"`
	DaysActive      int     `json:"days_active"`
	PlanProgress    *int    `json:"plan_progress"`
	LatestRiskLevel *string `json:"latest_risk_level"`
}

type Dashboard struct {
	Patient  *patient.Patient           `json:"patient"`
	Upcoming []*appointment.Appointment `json:"upcoming_appointments"`
	Stats    Stats                      `json:"stats"`
}

type Service struct {
	patients     Patients
	appointments Appointments
	reports      Reports
	diagnoses    Diagnoses
	checkups     Checkups
	plans        Plans
	now          func() time.Time
}

func NewService(patients Patients, appointments Appointments, reports Reports, diagnoses Diagnoses, checkups Checkups, plans Plans) *Service {
	return &Service{
		patients:     patients,
		appointments: appointments,
		reports:      reports,
		diagnoses:    diagnoses,
		checkups:     checkups,
		plans:        plans,
		now:          time.Now,
	}
}

// Get loads every part of the dashboard concurrently. A missing active plan
// or checkup leaves the matching stat null.
func (s *Service) Get(ctx context.Context, patientID uuid.UUID) (*Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)
	one := pagination.Params{Limit: 1}

	g.Go(func() error {
		p, err := s.patients.Get(ctx, patientID)
		d.Patient = p
		return err
	})
	g.Go(func() error {
		items, err := s.appointments.Upcoming(ctx, patientID, upcomingLimit)
		d.Upcoming = items
		return err
	})
	g.Go(func() (err error) {
		d.Stats.Appointments, err = s.appointments.Count(ctx, patientID)
		return err
	})
	g.Go(func() (err error) {
		d.Stats.Reports, err = s.reports.Count(ctx, patientID)
		return err
	})
	g.Go(func() (err error) {
		_, d.Stats.Diagnoses, err = s.diagnoses.List(ctx, patientID, one)
		return err
	})
	g.Go(func() (err error) {
		_, d.Stats.Checkups, err = s.checkups.List(ctx, patientID, one)
		return err
	})
	g.Go(func() error {
		plan, err := s.plans.Active(ctx, patientID)
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		d.Stats.PlanProgress = &plan.Progress
		return nil
	})
	g.Go(func() error {
		c, err := s.checkups.Latest(ctx, patientID)
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		d.Stats.LatestRiskLevel = &c.RiskLevel
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if d.Upcoming == nil {
		d.Upcoming = []*appointment.Appointment{}
	}
	d.Stats.DaysActive = d.Patient.DaysActive(s.now())
	return &d, nil
}
