package wellness

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type Package struct {
	Name          string   `json:"name"`
	Price         int      `json:"price"`
	OriginalPrice int      `json:"original_price"`
	Tests         int      `json:"tests"`
	Includes      []string `json:"includes"`
	Popular       bool     `json:"popular"`
}

// Discount is the whole-percent saving over the original price.
func (p Package) Discount() int {
	if p.OriginalPrice <= 0 {
		return 0
	}
	return int(math.Round(float64(p.OriginalPrice-p.Price) / float64(p.OriginalPrice) * 100))
}

type DietPlan struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Tip struct {
	ID        uuid.UUID `db:"id" json:"id,omitempty"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	Category  string    `db:"category" json:"category"`
	CreatedAt time.Time `db:"created_at" json:"created_at,omitempty"`
}

var Packages = []Package{
	{
		Name: "Basic Health Checkup", Price: 999, OriginalPrice: 1499, Tests: 45,
		Includes: []string{"Blood Sugar", "Lipid Profile", "Kidney Function", "Liver Function", "Thyroid Profile"},
	},
	{
		Name: "Comprehensive Health Package", Price: 2499, OriginalPrice: 3999, Tests: 75,
		Includes: []string{"Complete Blood Count", "Lipid Profile", "Kidney & Liver Function", "Thyroid", "Vitamin Tests", "Cardiac Markers"},
		Popular:  true,
	},
	{
		Name: "Executive Health Checkup", Price: 4999, OriginalPrice: 7999, Tests: 100,
		Includes: []string{"All Basic Tests", "Cancer Markers", "Heart Checkup", "Bone Density", "Full Body CT", "Diet Consultation"},
	},
	{
		Name: "Senior Citizen Package", Price: 3499, OriginalPrice: 5499, Tests: 80,
		Includes: []string{"Complete Health Profile", "Bone Health", "Heart Assessment", "Eye Checkup", "Memory Assessment"},
	},
}

var DietPlans = []DietPlan{
	{Name: "Weight Loss Plan", Description: "Personalized calorie-deficit diet"},
	{Name: "Diabetes Friendly", Description: "Low GI foods & balanced meals"},
	{Name: "Heart Healthy", Description: "Low sodium, heart-friendly diet"},
	{Name: "High Protein", Description: "Muscle building nutrition"},
}

// DefaultTips are served when no tips have been published.
var DefaultTips = []Tip{
	{Title: "Stay Hydrated", Content: "Drink at least 8 glasses of water daily for optimal health.", Category: "Lifestyle"},
	{Title: "Regular Exercise", Content: "30 minutes of moderate exercise 5 times a week can transform your health.", Category: "Exercise"},
	{Title: "Sleep Well", Content: "7-8 hours of quality sleep is essential for physical and mental health.", Category: "Sleep"},
	{Title: "Balanced Diet", Content: "Include fruits, vegetables, whole grains, and lean proteins in every meal.", Category: "Nutrition"},
	{Title: "Stress Management", Content: "Practice meditation or deep breathing for 10 minutes daily.", Category: "Mental Health"},
	{Title: "Regular Checkups", Content: "Annual health checkups can help detect issues early.", Category: "Prevention"},
}

const (
	Underweight = "Underweight"
	Normal      = "Normal"
	Overweight  = "Overweight"
	Obese       = "Obese"
)

type BMI struct {
	Value    float64 `json:"value"`
	Category string  `json:"category"`
}

// ComputeBMI takes weight in kg and height in cm. The value is rounded to
// one decimal and the category is taken from the rounded value.
func ComputeBMI(weightKg, heightCm float64) BMI {
	m := heightCm / 100
	v := math.Round(weightKg/(m*m)*10) / 10
	var cat string
	switch {
	case v < 18.5:
		cat = Underweight
	case v < 25:
		cat = Normal
	case v < 30:
		cat = Overweight
	default:
		cat = Obese
	}
	return BMI{Value: v, Category: cat}
}
