// Package summary writes the AI medical summary of a patient's record and
// renders it as JSON or PDF.
package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/domain/advisory"
	"github.com/vitacare/portal/internal/domain/diagnosis"
	"github.com/vitacare/portal/internal/domain/patient"
	"github.com/vitacare/portal/internal/domain/report"
)

// diagnosisWindow bounds how much diagnosis history goes into a prompt.
const diagnosisWindow = 20

type PatientLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type ReportSource interface {
	All(ctx context.Context, patientID uuid.UUID) ([]*report.MedicalReport, error)
}

type DiagnosisSource interface {
	Recent(ctx context.Context, patientID uuid.UUID, limit int) ([]*diagnosis.AIDiagnosis, error)
}

// Summary is the generated summary together with what it was written from.
type Summary struct {
	Patient        *patient.Patient         `json:"patient"`
	ReportCount    int                      `json:"report_count"`
	DiagnosisCount int                      `json:"diagnosis_count"`
	Summary        *advisory.MedicalSummary `json:"summary"`
	GeneratedAt    time.Time                `json:"generated_at"`
}

type Service struct {
	patients  PatientLookup
	reports   ReportSource
	diagnoses DiagnosisSource
	adapter   *advisory.Adapter
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(patients PatientLookup, reports ReportSource, diagnoses DiagnosisSource, adapter *advisory.Adapter, logger zerolog.Logger) *Service {
	return &Service{
		patients:  patients,
		reports:   reports,
		diagnoses: diagnoses,
		adapter:   adapter,
		logger:    logger.With().Str("component", "summary").Logger(),
		now:       time.Now,
	}
}

// Generate gathers the patient's record and asks the model to summarise
// it. Model failures come back wrapped in advisory.ErrUnavailable.
func (s *Service) Generate(ctx context.Context, patientID uuid.UUID) (*Summary, error) {
	pt, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	reports, err := s.reports.All(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}
	diagnoses, err := s.diagnoses.Recent(ctx, patientID, diagnosisWindow)
	if err != nil {
		return nil, fmt.Errorf("load diagnoses: %w", err)
	}

	out, err := advisory.Invoke[advisory.MedicalSummary](ctx, s.adapter, advisory.SummaryPrompt(Subject(pt, reports, diagnoses)))
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("patient_id", patientID.String()).Str("status", out.OverallStatus).Msg("summary generated")
	return &Summary{
		Patient:        pt,
		ReportCount:    len(reports),
		DiagnosisCount: len(diagnoses),
		Summary:        out,
		GeneratedAt:    s.now(),
	}, nil
}

// Subject flattens the record into prompt lines.
func Subject(pt *patient.Patient, reports []*report.MedicalReport, diagnoses []*diagnosis.AIDiagnosis) advisory.SummarySubject {
	sub := advisory.SummarySubject{
		Name:      pt.Name,
		Age:       pt.Age,
		Weight:    pt.Weight,
		BloodType: pt.BloodType,
		Allergies: pt.Allergies,
	}
	for _, r := range reports {
		date := "No date"
		if !r.ReportDate.IsZero() {
			date = r.ReportDate.Format("2006-01-02")
		}
		sub.Reports = append(sub.Reports, fmt.Sprintf("%s: %s (%s)", r.ReportType, r.FileName, date))
	}
	for _, d := range diagnoses {
		sub.Diagnoses = append(sub.Diagnoses, fmt.Sprintf("%s - Severity: %s, Specialist: %s", d.Condition, d.Severity, d.RecommendedSpecialist))
	}
	return sub
}
