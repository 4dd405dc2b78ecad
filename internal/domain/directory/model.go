package directory

import (
	"time"

	"github.com/google/uuid"
)

// Hospital maps to the hospitals table.
type Hospital struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Address            string    `db:"address" json:"address"`
	City               string    `db:"city" json:"city"`
	State              string    `db:"state" json:"state"`
	Region             string    `db:"region" json:"region"`
	Phone              string    `db:"phone" json:"phone"`
	Rating             float64   `db:"rating" json:"rating"`
	Specialties        []string  `db:"specialties" json:"specialties"`
	Facilities         []string  `db:"facilities" json:"facilities"`
	EmergencyAvailable bool      `db:"emergency_available" json:"emergency_available"`
	ImageURL           string    `db:"image_url" json:"image_url,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Doctor maps to the doctors table. Hospital name is denormalised.
type Doctor struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Specialization  string     `db:"specialization" json:"specialization"`
	HospitalID      *uuid.UUID `db:"hospital_id" json:"hospital_id,omitempty"`
	HospitalName    string     `db:"hospital_name" json:"hospital_name"`
	ExperienceYears int        `db:"experience_years" json:"experience_years"`
	Rating          float64    `db:"rating" json:"rating"`
	ReviewsCount    int        `db:"reviews_count" json:"reviews_count"`
	ConsultationFee float64    `db:"consultation_fee" json:"consultation_fee"`
	Qualification   string     `db:"qualification" json:"qualification"`
	Languages       []string   `db:"languages" json:"languages"`
	AvailableDays   []string   `db:"available_days" json:"available_days"`
	AvailableSlots  []string   `db:"available_slots" json:"available_slots"`
	Bio             string     `db:"bio" json:"bio"`
	ImageURL        string     `db:"image_url" json:"image_url,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// DefaultConsultationFee applies when a doctor has no fee on record.
const DefaultConsultationFee = 500

// Fee is the consultation fee charged for a booking.
func (d *Doctor) Fee() float64 {
	if d.ConsultationFee <= 0 {
		return DefaultConsultationFee
	}
	return d.ConsultationFee
}

// Regions used by the hospital filter.
var Regions = []string{"North India", "South India", "East India", "West India"}

// HospitalDetail is a hospital with its doctors.
type HospitalDetail struct {
	*Hospital
	Doctors []*Doctor `json:"doctors"`
}
