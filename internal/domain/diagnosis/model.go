package diagnosis

import (
	"time"

	"github.com/google/uuid"
)

// AIDiagnosis maps to the ai_diagnoses table. Confidence is a percentage.
type AIDiagnosis struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	PatientID             uuid.UUID `db:"patient_id" json:"patient_id"`
	ImageURL              string    `db:"image_url" json:"image_url"`
	Condition             string    `db:"condition" json:"condition"`
	Confidence            int       `db:"confidence" json:"confidence"`
	Severity              string    `db:"severity" json:"severity"`
	RecommendedSpecialist string    `db:"recommended_specialist" json:"recommended_specialist"`
	Advice                string    `db:"advice" json:"advice"`
	Precautions           []string  `db:"precautions" json:"precautions"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}
