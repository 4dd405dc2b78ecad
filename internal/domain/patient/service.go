package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vitacare/portal/internal/platform/auth"
	"github.com/vitacare/portal/internal/platform/db"
)

// ErrAlreadyOnboarded is returned when an onboarded account onboards again.
var ErrAlreadyOnboarded = errors.New("patient already onboarded")

// ErrInvalidProfile wraps field validation failures.
var ErrInvalidProfile = errors.New("invalid profile")

// ReportAttacher turns an onboarding upload into a medical report.
type ReportAttacher interface {
	AttachUpload(ctx context.Context, patientID uuid.UUID, owner string, blobID uuid.UUID) error
}

type Service struct {
	repo    Repository
	reports ReportAttacher
	tx      db.TxRunner
}

func NewService(repo Repository, reports ReportAttacher, tx db.TxRunner) *Service {
	if tx == nil {
		tx = db.RunDirect
	}
	return &Service{repo: repo, reports: reports, tx: tx}
}

// LoadProfile implements auth.ProfileLoader.
func (s *Service) LoadProfile(ctx context.Context, userID string) (auth.Profile, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByUserID(ctx context.Context, userID string) (*Patient, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, u ProfileUpdate) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Name != nil {
		p.Name = strings.TrimSpace(*u.Name)
	}
	if u.Age != nil {
		p.Age = *u.Age
	}
	if u.Weight != nil {
		p.Weight = *u.Weight
	}
	if u.BloodType != nil {
		p.BloodType = *u.BloodType
	}
	if u.Allergies != nil {
		p.Allergies = strings.TrimSpace(*u.Allergies)
	}
	if u.EmergencyContact != nil {
		p.EmergencyContact = strings.TrimSpace(*u.EmergencyContact)
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Onboard creates the patient for userID and attaches any uploaded reports
// in one transaction. An account with an incomplete profile is completed
// rather than duplicated.
func (s *Service) Onboard(ctx context.Context, userID string, d OnboardingDraft) (*Patient, error) {
	p := &Patient{
		UserID:             userID,
		Name:               strings.TrimSpace(d.Name),
		Age:                d.Age,
		Weight:             d.Weight,
		BloodType:          d.BloodType,
		Allergies:          strings.TrimSpace(d.Allergies),
		EmergencyContact:   strings.TrimSpace(d.EmergencyContact),
		OnboardingComplete: true,
	}
	if p.BloodType == "" {
		p.BloodType = UnknownBloodType
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	err := s.tx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByUserID(ctx, userID)
		switch {
		case err == nil && existing.OnboardingComplete:
			return ErrAlreadyOnboarded
		case err == nil:
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
			if err := s.repo.Update(ctx, p); err != nil {
				return err
			}
		case errors.Is(err, db.ErrNotFound):
			if err := s.repo.Create(ctx, p); err != nil {
				return err
			}
		default:
			return err
		}

		for _, blobID := range d.Uploads {
			if err := s.reports.AttachUpload(ctx, p.ID, userID, blobID); err != nil {
				return fmt.Errorf("attach upload %s: %w", blobID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func validate(p *Patient) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	case p.Age <= 0:
		return fmt.Errorf("%w: age must be positive", ErrInvalidProfile)
	case p.Weight <= 0:
		return fmt.Errorf("%w: weight must be positive", ErrInvalidProfile)
	case !validBloodTypes[p.BloodType]:
		return fmt.Errorf("%w: unknown blood_type %s", ErrInvalidProfile, p.BloodType)
	}
	return nil
}
