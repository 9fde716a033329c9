// Package prompt builds the text prompts shared by the LLM-backed providers.
package prompt

import (
	"fmt"
	"strings"

	"github.com/controlfit/controlfit/pkg/models"
)

// Weekly renders a weekly-feedback interpretation prompt. The model is asked
// for a JSON object matching models.WeeklyInterpretation.
func Weekly(req models.WeeklyInterpretationRequest) string {
	var b strings.Builder

	b.WriteString("You are a fitness coach reviewing a client's week.\n")
	fmt.Fprintf(&b, "Week: %s to %s\n\n", req.WeekStart.Format("2006-01-02"), req.WeekEnd.Format("2006-01-02"))

	b.WriteString("Computed metrics:\n")
	writeFloat(&b, "- Average weight (kg)", req.Metrics.AvgWeight)
	writeFloat(&b, "- Weight change (kg)", req.Metrics.WeightChange)
	fmt.Fprintf(&b, "- Training days: %d\n", req.Metrics.TrainingDays)
	writeFloat(&b, "- Average sleep (hours)", req.Metrics.AvgSleep)
	if req.Metrics.TotalCalories != nil {
		fmt.Fprintf(&b, "- Total calories: %d\n", *req.Metrics.TotalCalories)
	} else {
		b.WriteString("- Total calories: no data\n")
	}

	fmt.Fprintf(&b, "\nWeight trend: %s", req.WeightTrend.Trend)
	if req.WeightTrend.RatePerWeek != nil {
		fmt.Fprintf(&b, " (%.2f kg/week)", *req.WeightTrend.RatePerWeek)
	}
	b.WriteString("\n")

	if req.BodyFat.Summary != "" {
		fmt.Fprintf(&b, "Body fat: %s\n", req.BodyFat.Summary)
	}

	if req.Profile != nil {
		b.WriteString("\nClient profile:\n")
		if req.Profile.Age != nil {
			fmt.Fprintf(&b, "- Age: %d\n", *req.Profile.Age)
		}
		if req.Profile.HeightCm != nil {
			fmt.Fprintf(&b, "- Height: %.0f cm\n", *req.Profile.HeightCm)
		}
		if req.Profile.TrainingType != nil {
			fmt.Fprintf(&b, "- Training type: %s\n", *req.Profile.TrainingType)
		}
		if req.Profile.ActivityLevel != nil {
			fmt.Fprintf(&b, "- Activity level: %s\n", *req.Profile.ActivityLevel)
		}
	}

	if len(req.CheatMeals) > 0 {
		b.WriteString("\nCheat meals this week:\n")
		for _, cm := range req.CheatMeals {
			fmt.Fprintf(&b, "- %s: %s\n", cm.Date.Format("2006-01-02"), cm.Description)
		}
	}

	b.WriteString(`
Respond with a JSON object with exactly these string fields:
{"body_fat_trend": "...", "inflammation_notes": "...", "liquid_retention_notes": "...", "consistency_analysis": "...", "overall_interpretation": "..."}
Base every statement on the data above. If the data is insufficient for a field, say so in that field.`)

	return b.String()
}

// CheatMeal renders a one-line impact estimate prompt for a single cheat meal.
func CheatMeal(req models.CheatMealRequest) string {
	return fmt.Sprintf(
		"A fitness client had a cheat meal on %s: %q.\n"+
			"In one or two sentences, estimate its likely impact on their progress "+
			"(water retention, calorie surplus, recovery). Respond with plain text only.",
		req.Date.Format("2006-01-02"), req.Description)
}

func writeFloat(b *strings.Builder, label string, v *float64) {
	if v != nil {
		fmt.Fprintf(b, "%s: %.2f\n", label, *v)
	} else {
		fmt.Fprintf(b, "%s: no data\n", label)
	}
}
