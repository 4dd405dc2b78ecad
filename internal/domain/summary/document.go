package summary

import (
	"fmt"

	"github.com/vitacare/portal/internal/platform/reporting"
)

const disclaimer = "This summary is generated by an AI model from the records on file. " +
	"It is not a diagnosis; consult a healthcare professional before acting on it."

// Document lays the summary out for the PDF renderer.
func Document(s *Summary) reporting.Document {
	pt, ms := s.Patient, s.Summary
	doc := reporting.Document{
		Title: "Medical Summary",
		Subtitle: []string{
			fmt.Sprintf("Patient: %s", pt.Name),
			fmt.Sprintf("Age: %d  Weight: %g kg  Blood type: %s", pt.Age, pt.Weight, orUnknown(pt.BloodType)),
			fmt.Sprintf("Overall status: %s", ms.OverallStatus),
		},
		Sections: []reporting.Section{
			{Heading: "Summary", Lines: []string{ms.SummaryText}},
			{Heading: "Key Conditions", Lines: ms.KeyConditions, Bullets: true},
			{Heading: "Treatments & Recommendations", Lines: ms.Treatments, Bullets: true},
			{Heading: "Allergy Alerts", Lines: ms.AllergyAlerts, Bullets: true},
			{Heading: "Risk Factors", Lines: ms.RiskFactors, Bullets: true},
			{Heading: "Recommended Follow-ups", Lines: ms.RecommendedFollowups, Bullets: true},
			{Heading: "Based On", Lines: []string{
				fmt.Sprintf("%d medical reports, %d AI diagnoses", s.ReportCount, s.DiagnosisCount),
			}},
		},
		Footer:      disclaimer,
		GeneratedAt: s.GeneratedAt,
	}
	return doc
}

func orUnknown(v string) string {
	if v == "" {
		return "Unknown"
	}
	return v
}
