package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table. UserID is the account email.
type Patient struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	UserID             string    `db:"user_id" json:"user_id"`
	Name               string    `db:"name" json:"name"`
	Age                int       `db:"age" json:"age"`
	Weight             float64   `db:"weight" json:"weight"`
	BloodType          string    `db:"blood_type" json:"blood_type"`
	Allergies          string    `db:"allergies" json:"allergies"`
	EmergencyContact   string    `db:"emergency_contact" json:"emergency_contact"`
	OnboardingComplete bool      `db:"onboarding_complete" json:"onboarding_complete"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Patient) ProfileID() uuid.UUID { return p.ID }
func (p *Patient) IsOnboarded() bool    { return p.OnboardingComplete }

// DaysActive counts calendar days since the profile was created, at least 1.
func (p *Patient) DaysActive(now time.Time) int {
	d := int(now.Sub(p.CreatedAt).Hours()/24) + 1
	if d < 1 {
		return 1
	}
	return d
}

const UnknownBloodType = "Unknown"

var validBloodTypes = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true, UnknownBloodType: true,
}

// ProfileUpdate carries the editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Name             *string  `json:"name"`
	Age              *int     `json:"age"`
	Weight           *float64 `json:"weight"`
	BloodType        *string  `json:"blood_type"`
	Allergies        *string  `json:"allergies"`
	EmergencyContact *string  `json:"emergency_contact"`
}
