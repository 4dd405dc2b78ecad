package patient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/pkg/wizard"
)

// OnboardingFlow is the wizard name used in /wizards/<flow> routes.
const OnboardingFlow = "onboarding"

// OnboardingDraft is the in-progress profile. Uploads are blob ids returned
// by the onboarding upload endpoint.
type OnboardingDraft struct {
	Name             string      `json:"name"`
	Age              int         `json:"age"`
	Weight           float64     `json:"weight"`
	BloodType        string      `json:"blood_type"`
	Allergies        string      `json:"allergies"`
	EmergencyContact string      `json:"emergency_contact"`
	Uploads          []uuid.UUID `json:"uploads"`
}

var onboardingSteps = []wizard.Step[OnboardingDraft]{
	{Name: "Basic Info", Complete: func(d OnboardingDraft) bool {
		return d.Name != "" && d.Age > 0 && d.Weight > 0
	}},
	{Name: "Medical Details"},
	{Name: "Reports"},
}

func alreadyOnboarded() error {
	return echo.NewHTTPError(http.StatusConflict, map[string]string{
		"error":    "already onboarded",
		"redirect": "/dashboard",
	})
}

// NewOnboardingFlow wires the onboarding wizard to svc.
func NewOnboardingFlow(svc *Service, store wizard.Store, logger zerolog.Logger) *wizard.Flow[OnboardingDraft] {
	f := wizard.NewFlow(OnboardingFlow, onboardingSteps, store, logger)

	f.Init = func(ctx context.Context, owner string, _ json.RawMessage) (OnboardingDraft, int, error) {
		p, err := svc.GetByUserID(ctx, owner)
		switch {
		case err == nil && p.OnboardingComplete:
			return OnboardingDraft{}, 0, alreadyOnboarded()
		case err != nil && !errors.Is(err, db.ErrNotFound):
			return OnboardingDraft{}, 0, err
		}
		return OnboardingDraft{BloodType: UnknownBloodType}, 1, nil
	}

	f.Normalize = func(_ context.Context, _ string, d *OnboardingDraft) error {
		if d.BloodType == "" {
			d.BloodType = UnknownBloodType
		}
		if !validBloodTypes[d.BloodType] {
			return wizard.Invalid("blood_type %q is not recognised", d.BloodType)
		}
		if d.Age < 0 {
			return wizard.Invalid("age must be positive")
		}
		if d.Weight < 0 {
			return wizard.Invalid("weight must be positive")
		}
		return nil
	}

	f.Persist = func(ctx context.Context, owner string, d OnboardingDraft) (interface{}, error) {
		p, err := svc.Onboard(ctx, owner, d)
		if errors.Is(err, ErrAlreadyOnboarded) {
			return nil, alreadyOnboarded()
		}
		if errors.Is(err, ErrInvalidProfile) {
			return nil, wizard.Invalid("%v", err)
		}
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return f
}
