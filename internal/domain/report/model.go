package report

import (
	"time"

	"github.com/google/uuid"
)

// MedicalReport is an uploaded document attached to a patient.
type MedicalReport struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	BlobID     *uuid.UUID `db:"blob_id" json:"-"`
	FileName   string     `db:"file_name" json:"file_name"`
	FileURL    string     `db:"file_url" json:"file_url"`
	FileType   string     `db:"file_type" json:"file_type"`
	ReportType string     `db:"report_type" json:"report_type"`
	ReportDate time.Time  `db:"report_date" json:"report_date"`
	Notes      string     `db:"notes" json:"notes"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

const (
	TypeBloodTest        = "blood_test"
	TypeXRay             = "xray"
	TypeMRI              = "mri"
	TypeCTScan           = "ct_scan"
	TypePrescription     = "prescription"
	TypeDischargeSummary = "discharge_summary"
	TypeOther            = "other"
)

var validReportTypes = map[string]bool{
	TypeBloodTest: true, TypeXRay: true, TypeMRI: true, TypeCTScan: true,
	TypePrescription: true, TypeDischargeSummary: true, TypeOther: true,
}

// ValidReportType reports whether t is an accepted report_type.
func ValidReportType(t string) bool { return validReportTypes[t] }
