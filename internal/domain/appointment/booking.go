package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/domain/directory"
	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/pkg/wizard"
)

const BookingFlow = "booking"

// Slots are the bookable consultation times.
var Slots = []string{
	"09:00 AM", "09:30 AM", "10:00 AM", "10:30 AM", "11:00 AM", "11:30 AM", "12:00 PM",
	"02:00 PM", "02:30 PM", "03:00 PM", "03:30 PM", "04:00 PM", "04:30 PM",
	"05:00 PM", "05:30 PM", "06:00 PM",
}

// BookingDays is how many days ahead, starting tomorrow, can be booked.
const BookingDays = 7

// BookingDates lists the bookable dates for now.
func BookingDates(now time.Time) []string {
	out := make([]string, 0, BookingDays)
	for i := 1; i <= BookingDays; i++ {
		out = append(out, now.AddDate(0, 0, i).Format(dateLayout))
	}
	return out
}

// DoctorSlots returns the candidate slots the doctor accepts on date.
func DoctorSlots(doc *directory.Doctor, date string) []string {
	if d, err := time.Parse(dateLayout, date); err == nil && !worksOn(doc, d.Weekday()) {
		return []string{}
	}
	if len(doc.AvailableSlots) == 0 {
		return Slots
	}
	var out []string
	for _, s := range Slots {
		if contains(doc.AvailableSlots, s) {
			out = append(out, s)
		}
	}
	return out
}

func worksOn(doc *directory.Doctor, wd time.Weekday) bool {
	if len(doc.AvailableDays) == 0 {
		return true
	}
	for _, d := range doc.AvailableDays {
		if strings.EqualFold(d, wd.String()) || strings.EqualFold(d, wd.String()[:3]) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// checkSlot validates a date and time choice for doc.
func checkSlot(doc *directory.Doctor, date, slot string, now time.Time) error {
	if !contains(BookingDates(now), date) {
		return fmt.Errorf("%w: date must be within the next %d days starting tomorrow", ErrInvalidBooking, BookingDays)
	}
	if !contains(Slots, slot) {
		return fmt.Errorf("%w: unknown time slot %q", ErrInvalidBooking, slot)
	}
	if !contains(DoctorSlots(doc, date), slot) {
		return fmt.Errorf("%w: %s is not available at %s on %s", ErrInvalidBooking, doc.Name, slot, date)
	}
	return nil
}

// BookingDraft is the booking wizard state. Doctor fields are filled from
// the directory whenever doctor_id changes.
type BookingDraft struct {
	DoctorID       uuid.UUID  `json:"doctor_id"`
	HospitalID     *uuid.UUID `json:"hospital_id,omitempty"`
	DoctorName     string     `json:"doctor_name"`
	Specialization string     `json:"specialization"`
	HospitalName   string     `json:"hospital_name"`
	Fee            float64    `json:"consultation_fee"`
	Date           string     `json:"date"`
	Time           string     `json:"time"`
	Mode           string     `json:"mode"`
	Symptoms       string     `json:"symptoms"`

	// Choices offered by the current step; recomputed on every patch.
	Dates     []string `json:"available_dates,omitempty"`
	TimeSlots []string `json:"available_times,omitempty"`
}

var bookingSteps = []wizard.Step[BookingDraft]{
	{Name: "Select Doctor", Complete: func(d BookingDraft) bool { return d.DoctorID != uuid.Nil && d.DoctorName != "" }},
	{Name: "Date & Time", Complete: func(d BookingDraft) bool { return d.Date != "" && d.Time != "" }},
	{Name: "Confirm", Complete: func(d BookingDraft) bool { return d.Mode == TypeInPerson || d.Mode == TypeVideo }},
}

type bookingParams struct {
	DoctorID   string `json:"doctor_id"`
	HospitalID string `json:"hospital_id"`
}

// NewBookingFlow wires the booking wizard. Creation params may preselect a
// doctor (starting on step 2) or a hospital.
func NewBookingFlow(svc *Service, store wizard.Store, logger zerolog.Logger) *wizard.Flow[BookingDraft] {
	f := wizard.NewFlow(BookingFlow, bookingSteps, store, logger)

	f.Init = func(ctx context.Context, _ string, raw json.RawMessage) (BookingDraft, int, error) {
		d := BookingDraft{Mode: TypeInPerson}
		var params bookingParams
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &params); err != nil {
				return d, 0, wizard.Invalid("%v", err)
			}
		}
		if params.HospitalID != "" {
			hid, err := uuid.Parse(params.HospitalID)
			if err != nil {
				return d, 0, wizard.Invalid("invalid hospital_id")
			}
			d.HospitalID = &hid
		}
		if params.DoctorID == "" {
			return d, 1, nil
		}
		id, err := uuid.Parse(params.DoctorID)
		if err != nil {
			return d, 0, wizard.Invalid("invalid doctor_id")
		}
		d.DoctorID = id
		if err := svc.resolveDoctor(ctx, &d); err != nil {
			return d, 0, err
		}
		return d, 2, nil
	}

	f.Normalize = func(ctx context.Context, _ string, d *BookingDraft) error {
		return svc.resolveDoctor(ctx, d)
	}

	f.Persist = func(ctx context.Context, owner string, d BookingDraft) (interface{}, error) {
		a, err := svc.Book(ctx, owner, d)
		if errors.Is(err, ErrInvalidBooking) {
			return nil, wizard.Invalid("%v", err)
		}
		return a, err
	}
	return f
}

// resolveDoctor fills the denormalised doctor fields and the offered dates
// and slots, and rejects choices the doctor cannot take.
func (s *Service) resolveDoctor(ctx context.Context, d *BookingDraft) error {
	if d.Mode == "" {
		d.Mode = TypeInPerson
	}
	if d.Mode != TypeInPerson && d.Mode != TypeVideo {
		return wizard.Invalid("mode must be in-person or video")
	}
	if d.DoctorID == uuid.Nil {
		d.DoctorName, d.Specialization, d.HospitalName, d.Fee = "", "", "", 0
		d.Dates, d.TimeSlots = nil, nil
		return nil
	}

	doc, err := s.doctors.GetDoctor(ctx, d.DoctorID)
	if errors.Is(err, db.ErrNotFound) {
		return wizard.Invalid("doctor %s not found", d.DoctorID)
	}
	if err != nil {
		return err
	}
	if d.HospitalID != nil && doc.HospitalID != nil && *d.HospitalID != *doc.HospitalID {
		return wizard.Invalid("%s does not practise at the selected hospital", doc.Name)
	}
	d.DoctorName = doc.Name
	d.Specialization = doc.Specialization
	d.HospitalName = doc.HospitalName
	d.Fee = doc.Fee()

	now := s.now()
	d.Dates = BookingDates(now)
	if d.Date != "" && !contains(d.Dates, d.Date) {
		return wizard.Invalid("date must be one of %s", strings.Join(d.Dates, ", "))
	}
	if d.Date == "" {
		d.TimeSlots = nil
	} else {
		d.TimeSlots = DoctorSlots(doc, d.Date)
	}
	if d.Time != "" {
		if d.Date == "" {
			return wizard.Invalid("choose a date before a time")
		}
		if err := checkSlot(doc, d.Date, d.Time, now); err != nil {
			return wizard.Invalid("%v", err)
		}
	}
	return nil
}
