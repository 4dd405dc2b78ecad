package healthplan

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/domain/advisory"
	"github.com/vitacare/portal/internal/domain/patient"
	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/pkg/pagination"
)

var ErrInvalidGoal = errors.New("invalid goal")

var DefaultSort = pagination.Sort{Field: "created_at", Desc: true}

type PatientLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	repo     Repository
	patients PatientLookup
	adapter  *advisory.Adapter
	tx       db.TxRunner
	logger   zerolog.Logger
}

func NewService(repo Repository, patients PatientLookup, adapter *advisory.Adapter, tx db.TxRunner, logger zerolog.Logger) *Service {
	if tx == nil {
		tx = db.RunDirect
	}
	return &Service{
		repo:     repo,
		patients: patients,
		adapter:  adapter,
		tx:       tx,
		logger:   logger.With().Str("component", "healthplan").Logger(),
	}
}

// Generate builds a four week plan for goal and makes it the patient's
// active plan. Earlier active plans are archived in the same transaction.
func (s *Service) Generate(ctx context.Context, patientID uuid.UUID, goal string) (*HealthPlan, error) {
	label := GoalLabel(goal)
	if label == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGoal, goal)
	}
	pt, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	draft, err := advisory.Invoke[advisory.PlanDraft](ctx, s.adapter, advisory.PlanPrompt(advisory.PlanSubject{
		Age:       pt.Age,
		Weight:    pt.Weight,
		Allergies: pt.Allergies,
		Goal:      label,
	}))
	if err != nil {
		return nil, err
	}

	plan := fromDraft(patientID, goal, draft)
	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.ArchiveActive(ctx, patientID); err != nil {
			return err
		}
		return s.repo.Create(ctx, plan)
	})
	if err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	s.logger.Info().Str("plan_id", plan.ID.String()).Str("goal", goal).Int("tasks", len(plan.DailyTasks)).Msg("health plan created")
	return plan, nil
}

func fromDraft(patientID uuid.UUID, goal string, d *advisory.PlanDraft) *HealthPlan {
	p := &HealthPlan{
		ID:                  uuid.New(),
		PatientID:           patientID,
		Goal:                goal,
		PlanName:            d.PlanName,
		DurationWeeks:       DurationWeeks,
		Status:              StatusActive,
		WeeklyGoals:         d.WeeklyGoals,
		DietRecommendations: d.DietRecommendations,
		ExercisePlan:        d.ExercisePlan,
	}
	for i, t := range d.DailyTasks {
		p.DailyTasks = append(p.DailyTasks, &Task{
			ID:       uuid.New(),
			PlanID:   p.ID,
			Position: i,
			Task:     t.Task,
			Category: t.Category,
		})
	}
	return p
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*HealthPlan, int, error) {
	return s.repo.ListByPatient(ctx, patientID, p)
}

// Active returns the patient's current plan, or db.ErrNotFound.
func (s *Service) Active(ctx context.Context, patientID uuid.UUID) (*HealthPlan, error) {
	return s.repo.Active(ctx, patientID)
}

// ToggleTask flips one task and recomputes the plan's progress. The plan row
// is locked for the duration, so toggles of one plan apply one at a time.
func (s *Service) ToggleTask(ctx context.Context, patientID, planID, taskID uuid.UUID) (*HealthPlan, error) {
	err := s.tx(ctx, func(ctx context.Context) error {
		plan, err := s.repo.Lock(ctx, planID)
		if err != nil {
			return err
		}
		if plan.PatientID != patientID {
			return db.ErrNotFound
		}
		if err := s.repo.ToggleTask(ctx, planID, taskID); err != nil {
			return err
		}
		done, total, err := s.repo.CountTasks(ctx, planID)
		if err != nil {
			return err
		}
		return s.repo.SetProgress(ctx, planID, Progress(done, total))
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, planID)
}
