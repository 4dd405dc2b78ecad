package healthplan

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/vitacare/portal/internal/domain/advisory"
)

const (
	StatusActive   = "active"
	StatusArchived = "archived"

	DurationWeeks = 4
)

// Goal is a plan objective a patient can pick.
type Goal struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

var Goals = []Goal{
	{"weight_loss", "Weight Loss"},
	{"muscle_gain", "Build Muscle"},
	{"better_sleep", "Better Sleep"},
	{"stress_reduction", "Reduce Stress"},
	{"healthy_eating", "Healthy Eating"},
	{"general_wellness", "General Wellness"},
}

// GoalLabel returns the display label of key, or "" for an unknown goal.
func GoalLabel(key string) string {
	for _, g := range Goals {
		if g.Key == key {
			return g.Label
		}
	}
	return ""
}

// HealthPlan maps to the health_plans table; DailyTasks come from
// health_plan_tasks.
type HealthPlan struct {
	ID                  uuid.UUID              `db:"id" json:"id"`
	PatientID           uuid.UUID              `db:"patient_id" json:"patient_id"`
	Goal                string                 `db:"goal" json:"goal"`
	PlanName            string                 `db:"plan_name" json:"plan_name"`
	DurationWeeks       int                    `db:"duration_weeks" json:"duration_weeks"`
	Progress            int                    `db:"progress" json:"progress"`
	Status              string                 `db:"status" json:"status"`
	WeeklyGoals         []string               `db:"weekly_goals" json:"weekly_goals"`
	DietRecommendations []string               `db:"diet_recommendations" json:"diet_recommendations"`
	ExercisePlan        []advisory.ExerciseDay `db:"exercise_plan" json:"exercise_plan"`
	DailyTasks          []*Task                `db:"-" json:"daily_tasks"`
	CreatedAt           time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time              `db:"updated_at" json:"updated_at"`
}

func (p *HealthPlan) GoalLabel() string { return GoalLabel(p.Goal) }

// Task is one daily task, addressed by its own id.
type Task struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PlanID    uuid.UUID `db:"plan_id" json:"plan_id"`
	Position  int       `db:"position" json:"position"`
	Task      string    `db:"task" json:"task"`
	Category  string    `db:"category" json:"category"`
	Completed bool      `db:"completed" json:"completed"`
}

// Progress is the rounded percentage of done tasks out of total.
func Progress(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
