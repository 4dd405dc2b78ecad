package checkup

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/domain/advisory"
	"github.com/vitacare/portal/pkg/pagination"
)

var ErrInvalidAnswers = errors.New("invalid checkup answers")

var DefaultSort = pagination.Sort{Field: "created_at", Desc: true}

type Service struct {
	repo    Repository
	adapter *advisory.Adapter
	logger  zerolog.Logger
}

func NewService(repo Repository, adapter *advisory.Adapter, logger zerolog.Logger) *Service {
	return &Service{repo: repo, adapter: adapter, logger: logger.With().Str("component", "checkup").Logger()}
}

// Responses checks answers (question id to option) against the questionnaire
// and returns them in question order.
func Responses(answers map[string]string) ([]advisory.QA, error) {
	known := make(map[string]bool, len(Questions))
	out := make([]advisory.QA, 0, len(Questions))
	for _, q := range Questions {
		known[q.ID] = true
		a, ok := answers[q.ID]
		if !ok || a == "" {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidAnswers, q.ID)
		}
		if !contains(q.Options, a) {
			return nil, fmt.Errorf("%w: %q is not an option for %s", ErrInvalidAnswers, a, q.ID)
		}
		out = append(out, advisory.QA{Question: q.Question, Answer: a})
	}
	for id := range answers {
		if !known[id] {
			return nil, fmt.Errorf("%w: unknown question %s", ErrInvalidAnswers, id)
		}
	}
	return out, nil
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

// Submit assesses the answers and stores the checkup. Nothing is stored when
// the assessment fails; the error then wraps advisory.ErrUnavailable.
func (s *Service) Submit(ctx context.Context, patientID uuid.UUID, answers map[string]string) (*HealthCheckup, error) {
	responses, err := Responses(answers)
	if err != nil {
		return nil, err
	}
	risk, err := advisory.Invoke[advisory.RiskAssessment](ctx, s.adapter, advisory.RiskPrompt(responses))
	if err != nil {
		return nil, err
	}

	c := &HealthCheckup{
		PatientID:       patientID,
		Responses:       responses,
		RiskScore:       int(math.Round(risk.RiskScore)),
		RiskLevel:       risk.RiskLevel,
		AreasOfConcern:  risk.AreasOfConcern,
		Recommendations: risk.Recommendations,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create checkup: %w", err)
	}
	s.logger.Info().Str("checkup_id", c.ID.String()).Str("risk_level", c.RiskLevel).Msg("checkup recorded")
	return c, nil
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID, p pagination.Params) ([]*HealthCheckup, int, error) {
	return s.repo.ListByPatient(ctx, patientID, p)
}

func (s *Service) Latest(ctx context.Context, patientID uuid.UUID) (*HealthCheckup, error) {
	return s.repo.Latest(ctx, patientID)
}
