package emergency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/domain/patient"
	"github.com/vitacare/portal/pkg/wizard"
)

const RequestFlow = "emergency"

// RequestDraft is the emergency wizard state. Leaving the coordinate out or
// setting geolocation_denied uses the fallback location.
type RequestDraft struct {
	Type              string   `json:"emergency_type"`
	Latitude          *float64 `json:"latitude,omitempty"`
	Longitude         *float64 `json:"longitude,omitempty"`
	GeolocationDenied bool     `json:"geolocation_denied"`

	// Filled on every patch for the location step.
	Approximate bool             `json:"location_approximate"`
	Nearby      []NearbyHospital `json:"nearby_hospitals,omitempty"`
}

func hasLocation(d RequestDraft) bool {
	return d.GeolocationDenied || (d.Latitude != nil && d.Longitude != nil)
}

var requestSteps = []wizard.Step[RequestDraft]{
	{Name: "Emergency Type", Complete: func(d RequestDraft) bool { return validTypes[d.Type] }},
	{Name: "Location", Complete: hasLocation},
	{Name: "Confirm"},
}

type PatientLookup interface {
	GetByUserID(ctx context.Context, userID string) (*patient.Patient, error)
}

// NewRequestFlow wires the emergency wizard to svc.
func NewRequestFlow(svc *Service, patients PatientLookup, store wizard.Store, logger zerolog.Logger) *wizard.Flow[RequestDraft] {
	f := wizard.NewFlow(RequestFlow, requestSteps, store, logger)

	f.Init = func(_ context.Context, _ string, raw json.RawMessage) (RequestDraft, int, error) {
		d := RequestDraft{Type: TypeOther}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &d); err != nil {
				return d, 0, wizard.Invalid("%v", err)
			}
		}
		if err := svc.normalize(&d); err != nil {
			return d, 0, err
		}
		return d, 1, nil
	}

	f.Normalize = func(_ context.Context, _ string, d *RequestDraft) error {
		return svc.normalize(d)
	}

	f.Persist = func(ctx context.Context, owner string, d RequestDraft) (interface{}, error) {
		p, err := patients.GetByUserID(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("load patient: %w", err)
		}
		r, err := svc.Create(ctx, p.ID, d)
		if errors.Is(err, ErrInvalidRequest) {
			return nil, wizard.Invalid("%v", err)
		}
		return r, err
	}
	return f
}

func (s *Service) normalize(d *RequestDraft) error {
	if d.Type == "" {
		d.Type = TypeOther
	}
	if !validTypes[d.Type] {
		return wizard.Invalid("emergency_type must be one of cardiac, accident, breathing, stroke, other")
	}
	d.Nearby = nil
	d.Approximate = false
	if !hasLocation(*d) && (d.Latitude != nil || d.Longitude != nil) {
		return wizard.Invalid("latitude and longitude go together")
	}
	if !hasLocation(*d) {
		return nil
	}
	loc, approx, err := s.ResolveLocation(*d)
	if err != nil {
		return wizard.Invalid("%v", err)
	}
	d.Approximate = approx
	d.Nearby = Nearby(loc)
	return nil
}
