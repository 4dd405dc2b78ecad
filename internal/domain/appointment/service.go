package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/domain/directory"
	"github.com/vitacare/portal/internal/domain/patient"
	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/internal/platform/jobs"
	"github.com/vitacare/portal/internal/platform/notification"
	"github.com/vitacare/portal/pkg/pagination"
)

var (
	// ErrInvalidTransition is returned when cancelling a finished appointment.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidBooking wraps booking field errors.
	ErrInvalidBooking = errors.New("invalid booking")
)

// DefaultSort lists the soonest appointment first.
var DefaultSort = pagination.Sort{Field: "appointment_date"}

var SortFields = map[string]bool{"appointment_date": true, "created_at": true}

// ReminderWindow is how far ahead reminders are sent.
const ReminderWindow = 24 * time.Hour

type DoctorLookup interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*directory.Doctor, error)
}

type PatientLookup interface {
	GetByUserID(ctx context.Context, userID string) (*patient.Patient, error)
}

type Notifier interface {
	Notify(ctx context.Context, patientID uuid.UUID, templateID string, data map[string]string) (*notification.Notification, error)
}

type Service struct {
	repo     Repository
	doctors  DoctorLookup
	patients PatientLookup
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, doctors DoctorLookup, patients PatientLookup, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		doctors:  doctors,
		patients: patients,
		notifier: notifier,
		logger:   logger.With().Str("component", "appointments").Logger(),
		now:      time.Now,
	}
}

// Book creates one scheduled appointment for the account owner from a
// completed booking draft. Doctor, slot and date are checked again since the
// draft may have been idle across midnight.
func (s *Service) Book(ctx context.Context, owner string, d BookingDraft) (*Appointment, error) {
	p, err := s.patients.GetByUserID(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	doc, err := s.doctors.GetDoctor(ctx, d.DoctorID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: doctor not found", ErrInvalidBooking)
	}
	if err != nil {
		return nil, err
	}
	if err := checkSlot(doc, d.Date, d.Time, s.now()); err != nil {
		return nil, err
	}
	mode := d.Mode
	if mode == "" {
		mode = TypeInPerson
	}
	if mode != TypeInPerson && mode != TypeVideo {
		return nil, fmt.Errorf("%w: mode must be in-person or video", ErrInvalidBooking)
	}

	a := &Appointment{
		PatientID:       p.ID,
		PatientName:     p.Name,
		PatientEmail:    owner,
		DoctorID:        doc.ID,
		DoctorName:      doc.Name,
		HospitalID:      doc.HospitalID,
		HospitalName:    doc.HospitalName,
		Specialization:  doc.Specialization,
		AppointmentDate: d.Date,
		AppointmentTime: d.Time,
		AppointmentType: mode,
		Symptoms:        strings.TrimSpace(d.Symptoms),
		ConsultationFee: doc.Fee(),
		Status:          StatusScheduled,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	s.logger.Info().Str("appointment_id", a.ID.String()).Str("doctor_id", doc.ID.String()).Msg("appointment booked")
	return a, nil
}

// ParseStatusFilter turns the status query parameter (comma separated) into
// a filter list.
func ParseStatusFilter(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	for _, st := range strings.Split(raw, ",") {
		st = strings.TrimSpace(st)
		if !validStatuses[st] {
			return nil, fmt.Errorf("unknown status: %s", st)
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, patientID uuid.UUID, f ListFilter, p pagination.Params) ([]*Appointment, int, error) {
	if p.Sort.Field == "" {
		p.Sort = DefaultSort
	}
	return s.repo.ListByPatient(ctx, patientID, f, p)
}

// UpcomingFilter selects active appointments dated today or later.
func (s *Service) UpcomingFilter() ListFilter {
	return ListFilter{Statuses: ActiveStatuses, FromDate: s.now().Format(dateLayout)}
}

// Upcoming returns the patient's next limit active appointments, soonest first.
func (s *Service) Upcoming(ctx context.Context, patientID uuid.UUID, limit int) ([]*Appointment, error) {
	items, _, err := s.repo.ListByPatient(ctx, patientID, s.UpcomingFilter(), pagination.Params{Limit: limit, Sort: DefaultSort})
	return items, err
}

func (s *Service) Count(ctx context.Context, patientID uuid.UUID) (int, error) {
	_, total, err := s.repo.ListByPatient(ctx, patientID, ListFilter{}, pagination.Params{Limit: 1, Sort: DefaultSort})
	return total, err
}

// Cancel moves the patient's own active appointment to cancelled.
func (s *Service) Cancel(ctx context.Context, patientID, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.PatientID != patientID {
		return nil, db.ErrNotFound
	}
	if !isActive(a.Status) {
		return nil, fmt.Errorf("%w: cannot cancel a %s appointment", ErrInvalidTransition, a.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		return nil, err
	}
	a.Status = StatusCancelled
	return a, nil
}

// SendReminders notifies patients of active appointments starting within
// ReminderWindow and stamps them so each is reminded once.
func (s *Service) SendReminders(ctx context.Context) (int, error) {
	now := s.now()
	horizon := now.Add(ReminderWindow)
	due, err := s.repo.ListDueReminders(ctx, now.Format(dateLayout), horizon.Format(dateLayout))
	if err != nil {
		return 0, fmt.Errorf("list due reminders: %w", err)
	}

	sent := 0
	for _, a := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		at, err := a.StartsAt(now.Location())
		if err != nil {
			s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("unparseable appointment time")
			continue
		}
		if !at.After(now) || at.After(horizon) {
			continue
		}
		if s.notifier != nil {
			_, err := s.notifier.Notify(ctx, a.PatientID, notification.TemplateAppointmentReminder, map[string]string{
				"doctor":         a.DoctorName,
				"specialization": a.Specialization,
				"date":           a.AppointmentDate,
				"time":           a.AppointmentTime,
			})
			if err != nil {
				s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("reminder publish failed")
			}
		}
		if err := s.repo.MarkReminded(ctx, a.ID, now); err != nil {
			return sent, fmt.Errorf("mark reminded: %w", err)
		}
		sent++
	}
	if sent > 0 {
		s.logger.Info().Int("sent", sent).Msg("appointment reminders sent")
	}
	return sent, nil
}

// ReminderJob runs SendReminders every minute.
func (s *Service) ReminderJob() jobs.Job {
	return jobs.Job{
		Name:    "appointment-reminders",
		Every:   time.Minute,
		Timeout: 30 * time.Second,
		Run: func(ctx context.Context) error {
			_, err := s.SendReminders(ctx)
			return err
		},
	}
}
