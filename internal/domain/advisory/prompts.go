package advisory

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are the VitaCare healthcare assistant. Be empathetic, professional and concise. " +
	"You never give a diagnosis; always remind people to consult a doctor."

func triagePrompt(message string) Prompt {
	return Prompt{
		System: systemPrompt,
		Text: fmt.Sprintf(`User's message: %q

Analyze the user's health concern and provide:
1. A brief acknowledgment of their concern
2. Possible conditions (if symptoms mentioned)
3. Severity assessment (Low/Medium/High/Emergency)
4. Recommended next steps
5. The right medical specialization to consult`, message),
	}
}

func askPrompt(question string) Prompt {
	return Prompt{
		System: systemPrompt,
		Text: "Answer the following health question clearly and concisely. " +
			"If it is about symptoms, suggest possible causes but stress professional consultation.\n\n" +
			"User Question: " + question,
	}
}

// ImagePrompt asks for a preliminary reading of the attached image.
func ImagePrompt(imageURL string) Prompt {
	return Prompt{
		System: systemPrompt,
		Text: `Analyze this medical or skin image and provide a preliminary assessment for educational purposes only:
1. Possible condition or observation
2. Confidence level (low/medium/high)
3. Severity assessment (low/moderate/high/critical)
4. Recommended specialist type to consult
5. Basic precautions or advice`,
		ImageURLs: []string{imageURL},
	}
}

// QA is one answered checkup question.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func RiskPrompt(answers []QA) Prompt {
	var b strings.Builder
	b.WriteString("Analyze these health assessment responses and provide a health risk analysis:\n\n")
	for _, a := range answers {
		fmt.Fprintf(&b, "%s: %s\n", a.Question, a.Answer)
	}
	b.WriteString(`
Provide:
1. Overall health score (0-100, where 100 is excellent health)
2. Risk level (low/moderate/high/critical)
3. Top 3 areas of concern
4. Top 5 personalized recommendations for improvement`)
	return Prompt{System: systemPrompt, Text: b.String()}
}

// PlanSubject is what the plan prompt knows about the patient.
type PlanSubject struct {
	Age       int
	Weight    float64
	Allergies string
	Goal      string
}

func PlanPrompt(s PlanSubject) Prompt {
	age, weight, allergies := s.Age, s.Weight, s.Allergies
	if age <= 0 {
		age = 30
	}
	if weight <= 0 {
		weight = 70
	}
	if allergies == "" {
		allergies = "None"
	}
	return Prompt{
		System: systemPrompt,
		Text: fmt.Sprintf(`Create a personalized 4-week health plan for a %d year old patient weighing %gkg.

Goal: %s
Known Allergies: %s

Create a plan with:
1. A motivating plan name
2. 5 daily tasks (mix of exercise, nutrition and wellness activities), each with a category
3. 4 weekly goals (one per week, progressively challenging)
4. 5 diet recommendations specific to the goal
5. A 7-day exercise plan with specific activities and durations`, age, weight, s.Goal, allergies),
	}
}

// SummarySubject is the record a medical summary is written from.
type SummarySubject struct {
	Name      string
	Age       int
	Weight    float64
	BloodType string
	Allergies string
	Reports   []string
	Diagnoses []string
}

func SummaryPrompt(s SummarySubject) Prompt {
	unknown := func(v string) string {
		if v == "" {
			return "Unknown"
		}
		return v
	}
	age, weight := "Unknown", "Unknown"
	if s.Age > 0 {
		age = fmt.Sprint(s.Age)
	}
	if s.Weight > 0 {
		weight = fmt.Sprintf("%g", s.Weight)
	}
	allergies := s.Allergies
	if allergies == "" {
		allergies = "None reported"
	}
	list := func(items []string, none string) string {
		if len(items) == 0 {
			return none
		}
		return strings.Join(items, "\n")
	}

	return Prompt{
		System: systemPrompt,
		Text: fmt.Sprintf(`Analyze this patient's medical information and provide a concise summary:

PATIENT INFO:
- Name: %s
- Age: %s years
- Weight: %s kg
- Blood Type: %s
- Known Allergies: %s

MEDICAL REPORTS (%d total):
%s

AI DIAGNOSIS HISTORY (%d total):
%s

Provide key conditions, current treatments or recommendations, allergy alerts, risk factors,
recommended follow-ups and the overall health status (Good/Fair/Needs Attention/Critical).`,
			unknown(s.Name), age, weight, unknown(s.BloodType), allergies,
			len(s.Reports), list(s.Reports, "No reports uploaded"),
			len(s.Diagnoses), list(s.Diagnoses, "No AI diagnoses")),
	}
}
