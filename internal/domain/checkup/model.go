package checkup

import (
	"time"

	"github.com/google/uuid"

	"github.com/vitacare/portal/internal/domain/advisory"
)

// Question is one entry of the fixed questionnaire.
type Question struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Questions is asked in order; every answer must be one of its options.
var Questions = []Question{
	{"sleep", "How many hours of sleep do you get on average?",
		[]string{"Less than 5 hours", "5-6 hours", "7-8 hours", "More than 8 hours"}},
	{"exercise", "How often do you exercise?",
		[]string{"Never", "1-2 times/week", "3-4 times/week", "Daily"}},
	{"stress", "How would you rate your stress level?",
		[]string{"Very High", "High", "Moderate", "Low"}},
	{"diet", "How would you describe your diet?",
		[]string{"Mostly junk food", "Irregular meals", "Balanced diet", "Very healthy"}},
	{"water", "How much water do you drink daily?",
		[]string{"Less than 4 glasses", "4-6 glasses", "6-8 glasses", "More than 8 glasses"}},
	{"smoking", "Do you smoke?",
		[]string{"Yes, regularly", "Occasionally", "Quit recently", "Never"}},
	{"alcohol", "How often do you consume alcohol?",
		[]string{"Daily", "Weekly", "Occasionally", "Never"}},
	{"chronic", "Do you have any chronic conditions?",
		[]string{"Yes, multiple", "Yes, one", "Not sure", "No"}},
}

// HealthCheckup maps to the health_checkups table.
type HealthCheckup struct {
	ID              uuid.UUID     `db:"id" json:"id"`
	PatientID       uuid.UUID     `db:"patient_id" json:"patient_id"`
	Responses       []advisory.QA `db:"responses" json:"responses"`
	RiskScore       int           `db:"risk_score" json:"risk_score"`
	RiskLevel       string        `db:"risk_level" json:"risk_level"`
	AreasOfConcern  []string      `db:"areas_of_concern" json:"areas_of_concern"`
	Recommendations []string      `db:"recommendations" json:"recommendations"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}
