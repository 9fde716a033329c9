package feedback

import (
	"fmt"
	"math"

	"github.com/controlfit/controlfit/pkg/models"
)

// Rate and midpoint thresholds for trend classification.
const (
	weightStableRate  = 0.1 // kg per week
	bodyFatStableDiff = 0.5 // percentage points
)

// ComputeWeeklyMetrics aggregates the deterministic metrics over a window of
// daily logs. Logs must be ordered by date ascending.
//
// Null handling is intentional and asymmetric:
//   - avg_weight / avg_sleep: mean of present values, nil when none present.
//   - weight_change: last minus first of the SEQUENCE endpoints; if either
//     endpoint log lacks a weight the change is nil even when other logs have
//     weights. ComputeWeightTrend anchors on weight-bearing records instead.
//   - total_calories: sum of present values, nil (not zero) when none present.
//   - training_days: plain count, 0 for an empty window.
func ComputeWeeklyMetrics(logs []*models.DailyLog) models.WeeklyMetrics {
	if len(logs) == 0 {
		return models.WeeklyMetrics{}
	}

	m := models.WeeklyMetrics{}

	var weightSum float64
	var weightN int
	var sleepSum float64
	var sleepN int
	var calSum int
	var calN int

	for _, log := range logs {
		if log.WeightKg != nil {
			weightSum += *log.WeightKg
			weightN++
		}
		if log.SleepHours != nil {
			sleepSum += *log.SleepHours
			sleepN++
		}
		if log.Calories != nil {
			calSum += *log.Calories
			calN++
		}
		if log.TrainingDone {
			m.TrainingDays++
		}
	}

	if weightN > 0 {
		avg := round2(weightSum / float64(weightN))
		m.AvgWeight = &avg
	}
	if sleepN > 0 {
		avg := round2(sleepSum / float64(sleepN))
		m.AvgSleep = &avg
	}
	if calN > 0 {
		m.TotalCalories = &calSum
	}

	first := logs[0].WeightKg
	last := logs[len(logs)-1].WeightKg
	if first != nil && last != nil {
		change := round2(*last - *first)
		m.WeightChange = &change
	}

	return m
}

// ComputeWeightTrend analyzes weight rate-of-change over an arbitrary range of
// logs ordered by date ascending. It needs at least two weight-bearing records;
// the first and last such records anchor the rate, regardless of where they sit
// in the sequence.
func ComputeWeightTrend(logs []*models.DailyLog) models.WeightTrend {
	var weighted []*models.DailyLog
	for _, log := range logs {
		if log.WeightKg != nil {
			weighted = append(weighted, log)
		}
	}

	if len(weighted) < 2 {
		t := models.WeightTrend{Trend: models.TrendInsufficientData}
		if len(weighted) == 1 {
			t.FirstWeight = weighted[0].WeightKg
			t.LastWeight = weighted[0].WeightKg
		}
		return t
	}

	first := weighted[0]
	last := weighted[len(weighted)-1]
	totalChange := *last.WeightKg - *first.WeightKg

	days := int(last.Date.Sub(first.Date).Hours() / 24)
	weeks := float64(days) / 7.0
	if days <= 0 {
		weeks = 1
	}
	rate := totalChange / weeks

	trend := models.TrendStable
	switch {
	case math.Abs(rate) < weightStableRate:
		trend = models.TrendStable
	case rate > 0:
		trend = models.TrendIncreasing
	default:
		trend = models.TrendDecreasing
	}

	rateR := round2(rate)
	changeR := round2(totalChange)
	return models.WeightTrend{
		Trend:       trend,
		RatePerWeek: &rateR,
		TotalChange: &changeR,
		FirstWeight: first.WeightKg,
		LastWeight:  last.WeightKg,
		Days:        days,
	}
}

// AnalyzeBodyFat summarizes body-fat ranges across the analyzed photos of a
// window, ordered by date ascending. Photos without both range bounds are
// ignored. Direction requires at least two qualifying photos and compares the
// midpoints of the first and last ranges.
func AnalyzeBodyFat(photos []*models.Photo) models.BodyFatAnalysis {
	var qualified []*models.Photo
	for _, p := range photos {
		if p.BodyFatMin != nil && p.BodyFatMax != nil {
			qualified = append(qualified, p)
		}
	}

	if len(qualified) == 0 {
		return models.BodyFatAnalysis{
			Summary: "No body fat data available for this week",
		}
	}

	var minSum, maxSum float64
	for _, p := range qualified {
		minSum += *p.BodyFatMin
		maxSum += *p.BodyFatMax
	}
	avgMin := round1(minSum / float64(len(qualified)))
	avgMax := round1(maxSum / float64(len(qualified)))

	var direction *string
	if len(qualified) >= 2 {
		firstMid := (*qualified[0].BodyFatMin + *qualified[0].BodyFatMax) / 2
		lastMid := (*qualified[len(qualified)-1].BodyFatMin + *qualified[len(qualified)-1].BodyFatMax) / 2
		change := lastMid - firstMid

		d := models.TrendStable
		switch {
		case math.Abs(change) < bodyFatStableDiff:
			d = models.TrendStable
		case change < 0:
			d = models.TrendDecreasing
		default:
			d = models.TrendIncreasing
		}
		direction = &d
	}

	summary := fmt.Sprintf("Body fat range: %.1f%% - %.1f%% (avg from %d photo(s))",
		avgMin, avgMax, len(qualified))
	if direction != nil {
		summary += ". Trend: " + *direction
	}

	return models.BodyFatAnalysis{
		Summary:     summary,
		PhotosCount: len(qualified),
		AvgMin:      &avgMin,
		AvgMax:      &avgMax,
		Direction:   direction,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
