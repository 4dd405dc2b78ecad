package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment maps to the appointments table. Doctor and hospital details
// are copied at booking time. Date is yyyy-MM-dd and time one of Slots.
type Appointment struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	PatientName     string     `db:"patient_name" json:"patient_name"`
	PatientEmail    string     `db:"patient_email" json:"patient_email"`
	DoctorID        uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	DoctorName      string     `db:"doctor_name" json:"doctor_name"`
	HospitalID      *uuid.UUID `db:"hospital_id" json:"hospital_id,omitempty"`
	HospitalName    string     `db:"hospital_name" json:"hospital_name"`
	Specialization  string     `db:"specialization" json:"specialization"`
	AppointmentDate string     `db:"appointment_date" json:"appointment_date"`
	AppointmentTime string     `db:"appointment_time" json:"appointment_time"`
	AppointmentType string     `db:"appointment_type" json:"appointment_type"`
	Symptoms        string     `db:"symptoms" json:"symptoms"`
	ConsultationFee float64    `db:"consultation_fee" json:"consultation_fee"`
	Status          string     `db:"status" json:"status"`
	ReminderSentAt  *time.Time `db:"reminder_sent_at" json:"reminder_sent_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no-show"
	StatusPending   = "pending"
)

const (
	TypeInPerson = "in-person"
	TypeVideo    = "video"
)

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusConfirmed: true, StatusCompleted: true,
	StatusCancelled: true, StatusNoShow: true, StatusPending: true,
}

// ActiveStatuses are the states an appointment can still be attended or
// cancelled from.
var ActiveStatuses = []string{StatusScheduled, StatusConfirmed, StatusPending}

func isActive(status string) bool {
	for _, s := range ActiveStatuses {
		if s == status {
			return true
		}
	}
	return false
}

const (
	dateLayout     = "2006-01-02"
	slotLayout     = "03:04 PM"
	dateTimeLayout = dateLayout + " " + slotLayout
)

// StartsAt resolves date and time in loc.
func (a *Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateTimeLayout, a.AppointmentDate+" "+a.AppointmentTime, loc)
}

// ListFilter narrows a patient's appointment listing. FromDate is inclusive.
type ListFilter struct {
	Statuses []string
	FromDate string
}
