package advisory

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Variant is one shape of structured advisory reply. Validate rejects replies
// that break the schema's enums or ranges; missing required keys are caught
// before it runs.
type Variant interface {
	Kind() string
	Schema() json.RawMessage
	Validate() error
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s %q is not one of %s", field, value, strings.Join(allowed, ", "))
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// TriageResult answers a symptom description.
type TriageResult struct {
	Response                string `json:"response"`
	Severity                string `json:"severity"`
	RecommendedSpecialist   string `json:"recommended_specialist,omitempty"`
	ShouldSeekImmediateCare bool   `json:"should_seek_immediate_care"`
}

var triageSchema = json.RawMessage(`{"type":"object","properties":{` +
	`"response":{"type":"string"},` +
	`"severity":{"type":"string","enum":["Low","Medium","High","Emergency"]},` +
	`"recommended_specialist":{"type":"string"},` +
	`"should_seek_immediate_care":{"type":"boolean"}},` +
	`"required":["response","severity","should_seek_immediate_care"]}`)

func (*TriageResult) Kind() string            { return "triage" }
func (*TriageResult) Schema() json.RawMessage { return triageSchema }

func (r *TriageResult) Validate() error {
	if err := required("response", r.Response); err != nil {
		return err
	}
	return oneOf("severity", r.Severity, "Low", "Medium", "High", "Emergency")
}

// HealthAnswer answers a general health question.
type HealthAnswer struct {
	Answer          string `json:"answer"`
	ShouldSeeDoctor bool   `json:"should_see_doctor"`
	Urgency         string `json:"urgency"`
}

var answerSchema = json.RawMessage(`{"type":"object","properties":{` +
	`"answer":{"type":"string"},` +
	`"should_see_doctor":{"type":"boolean"},` +
	`"urgency":{"type":"string","enum":["low","moderate","high"]}},` +
	`"required":["answer","should_see_doctor","urgency"]}`)

func (*HealthAnswer) Kind() string            { return "answer" }
func (*HealthAnswer) Schema() json.RawMessage { return answerSchema }

func (a *HealthAnswer) Validate() error {
	if err := required("answer", a.Answer); err != nil {
		return err
	}
	return oneOf("urgency", a.Urgency, "low", "moderate", "high")
}

// RiskAssessment scores a health checkup; 100 is excellent health.
type RiskAssessment struct {
	RiskScore       float64  `json:"risk_score"`
	RiskLevel       string   `json:"risk_level"`
	AreasOfConcern  []string `json:"areas_of_concern"`
	Recommendations []string `json:"recommendations"`
}

var riskSchema = json.RawMessage(`{"type":"object","properties":{` +
	`"risk_score":{"type":"number","minimum":0,"maximum":100},` +
	`"risk_level":{"type":"string","enum":["low","moderate","high","critical"]},` +
	`"areas_of_concern":{"type":"array","items":{"type":"string"}},` +
	`"recommendations":{"type":"array","items":{"type":"string"}}},` +
	`"required":["risk_score","risk_level","areas_of_concern","recommendations"]}`)

func (*RiskAssessment) Kind() string            { return "risk_assessment" }
func (*RiskAssessment) Schema() json.RawMessage { return riskSchema }

func (r *RiskAssessment) Validate() error {
	if math.IsNaN(r.RiskScore) || r.RiskScore < 0 || r.RiskScore > 100 {
		return fmt.Errorf("risk_score %v outside 0..100", r.RiskScore)
	}
	if err := oneOf("risk_level", r.RiskLevel, "low", "moderate", "high", "critical"); err != nil {
		return err
	}
	r.AreasOfConcern = orEmpty(r.AreasOfConcern)
	r.Recommendations = orEmpty(r.Recommendations)
	return nil
}

// ImageAnalysis is the preliminary reading of an uploaded image.
type ImageAnalysis struct {
	Condition   string   `json:"condition"`
	Confidence  string   `json:"confidence"`
	Severity    string   `json:"severity"`
	Specialist  string   `json:"specialist"`
	Advice      string   `json:"advice"`
	Precautions []string `json:"precautions"`
}

var imageSchema = json.RawMessage(`{"type":"object","properties":{` +
	`"condition":{"type":"string"},` +
	`"confidence":{"type":"string","enum":["low","medium","high"]},` +
	`"severity":{"type":"string","enum":["low","moderate","high","critical"]},` +
	`"specialist":{"type":"string"},` +
	`"advice":{"type":"string"},` +
	`"precautions":{"type":"array","items":{"type":"string"}}},` +
	`"required":["condition","confidence","severity","specialist","advice"]}`)

func (*ImageAnalysis) Kind() string            { return "image_analysis" }
func (*ImageAnalysis) Schema() json.RawMessage { return imageSchema }

func (a *ImageAnalysis) Validate() error {
	if err := required("condition", a.Condition); err != nil {
		return err
	}
	if err := oneOf("confidence", a.Confidence, "low", "medium", "high"); err != nil {
		return err
	}
	if err := oneOf("severity", a.Severity, "low", "moderate", "high", "critical"); err != nil {
		return err
	}
	a.Precautions = orEmpty(a.Precautions)
	return nil
}

// ConfidenceScore maps the confidence band to the stored percentage.
func (a *ImageAnalysis) ConfidenceScore() int {
	switch a.Confidence {
	case "high":
		return 90
	case "medium":
		return 70
	default:
		return 50
	}
}

// PlanTask is one daily task of a generated plan.
type PlanTask struct {
	Task     string `json:"task"`
	Category string `json:"category"`
}

type ExerciseDay struct {
	Day      string `json:"day"`
	Activity string `json:"activity"`
	Duration string `json:"duration"`
}

var taskCategories = []string{"exercise", "nutrition", "sleep", "mental", "general"}

// PlanDraft is a generated four week plan before it is stored.
type PlanDraft struct {
	PlanName            string        `json:"plan_name"`
	DailyTasks          []PlanTask    `json:"daily_tasks"`
	WeeklyGoals         []string      `json:"weekly_goals"`
	DietRecommendations []string      `json:"diet_recommendations"`
	ExercisePlan        []ExerciseDay `json:"exercise_plan"`
}

var planSchema = json.RawMessage(`{"type":"object","properties":{` +
	`"plan_name":{"type":"string"},` +
	`"daily_tasks":{"type":"array","minItems":1,"items":{"type":"object","properties":{` +
	`"task":{"type":"string"},"category":{"type":"string","enum":["exercise","nutrition","sleep","mental","general"]}},` +
	`"required":["task","category"]}},` +
	`"weekly_goals":{"type":"array","items":{"type":"string"}},` +
	`"diet_recommendations":{"type":"array","items":{"type":"string"}},` +
	`"exercise_plan":{"type":"array","items":{"type":"object","properties":{` +
	`"day":{"type":"string"},"activity":{"type":"string"},"duration":{"type":"string"}}}}},` +
	`"required":["plan_name","daily_tasks","weekly_goals","diet_recommendations","exercise_plan"]}`)

func (*PlanDraft) Kind() string            { return "plan" }
func (*PlanDraft) Schema() json.RawMessage { return planSchema }

func (p *PlanDraft) Validate() error {
	if err := required("plan_name", p.PlanName); err != nil {
		return err
	}
	if len(p.DailyTasks) == 0 {
		return fmt.Errorf("daily_tasks must not be empty")
	}
	for i := range p.DailyTasks {
		t := &p.DailyTasks[i]
		if err := required(fmt.Sprintf("daily_tasks[%d].task", i), t.Task); err != nil {
			return err
		}
		if t.Category == "" {
			t.Category = "general"
		}
		if err := oneOf(fmt.Sprintf("daily_tasks[%d].category", i), t.Category, taskCategories...); err != nil {
			return err
		}
	}
	p.WeeklyGoals = orEmpty(p.WeeklyGoals)
	p.DietRecommendations = orEmpty(p.DietRecommendations)
	if p.ExercisePlan == nil {
		p.ExercisePlan = []ExerciseDay{}
	}
	return nil
}

// MedicalSummary condenses a patient's record.
type MedicalSummary struct {
	OverallStatus        string   `json:"overall_status"`
	KeyConditions        []string `json:"key_conditions"`
	Treatments           []string `json:"treatments"`
	AllergyAlerts        []string `json:"allergy_alerts"`
	RiskFactors          []string `json:"risk_factors"`
	RecommendedFollowups []string `json:"recommended_followups"`
	SummaryText          string   `json:"summary_text"`
}

var summarySchema = json.RawMessage(`{"type":"object","properties":{` +
	`"overall_status":{"type":"string","enum":["Good","Fair","Needs Attention","Critical"]},` +
	`"key_conditions":{"type":"array","items":{"type":"string"}},` +
	`"treatments":{"type":"array","items":{"type":"string"}},` +
	`"allergy_alerts":{"type":"array","items":{"type":"string"}},` +
	`"risk_factors":{"type":"array","items":{"type":"string"}},` +
	`"recommended_followups":{"type":"array","items":{"type":"string"}},` +
	`"summary_text":{"type":"string"}},` +
	`"required":["overall_status","summary_text"]}`)

func (*MedicalSummary) Kind() string            { return "medical_summary" }
func (*MedicalSummary) Schema() json.RawMessage { return summarySchema }

func (s *MedicalSummary) Validate() error {
	if err := oneOf("overall_status", s.OverallStatus, "Good", "Fair", "Needs Attention", "Critical"); err != nil {
		return err
	}
	if err := required("summary_text", s.SummaryText); err != nil {
		return err
	}
	s.KeyConditions = orEmpty(s.KeyConditions)
	s.Treatments = orEmpty(s.Treatments)
	s.AllergyAlerts = orEmpty(s.AllergyAlerts)
	s.RiskFactors = orEmpty(s.RiskFactors)
	s.RecommendedFollowups = orEmpty(s.RecommendedFollowups)
	return nil
}
