// Package mock provides a deterministic AIProvider for tests and local
// development.
package mock

import (
	"context"
	"fmt"

	"github.com/controlfit/controlfit/pkg/models"
)

// Provider satisfies models.AIProvider with canned, deterministic responses.
// Individual funcs can be overridden per test.
type Provider struct {
	ProviderName           string
	InterpretWeekFunc      func(ctx context.Context, req models.WeeklyInterpretationRequest) (models.WeeklyInterpretation, error)
	EstimateBodyFatFunc    func(ctx context.Context, req models.BodyFatRequest) (models.BodyFatEstimate, error)
	InterpretCheatMealFunc func(ctx context.Context, req models.CheatMealRequest) (string, error)
}

func (p *Provider) Name() string { return p.ProviderName }

func (p *Provider) InterpretWeek(ctx context.Context, req models.WeeklyInterpretationRequest) (models.WeeklyInterpretation, error) {
	if p.InterpretWeekFunc != nil {
		return p.InterpretWeekFunc(ctx, req)
	}
	return models.WeeklyInterpretation{}, nil
}

func (p *Provider) EstimateBodyFat(ctx context.Context, req models.BodyFatRequest) (models.BodyFatEstimate, error) {
	if p.EstimateBodyFatFunc != nil {
		return p.EstimateBodyFatFunc(ctx, req)
	}
	return models.BodyFatEstimate{}, nil
}

func (p *Provider) InterpretCheatMeal(ctx context.Context, req models.CheatMealRequest) (string, error) {
	if p.InterpretCheatMealFunc != nil {
		return p.InterpretCheatMealFunc(ctx, req)
	}
	return "", nil
}

// NewProvider returns a Provider with sensible default responses.
func NewProvider() *Provider {
	return &Provider{
		ProviderName: "mock",
		InterpretWeekFunc: func(_ context.Context, req models.WeeklyInterpretationRequest) (models.WeeklyInterpretation, error) {
			return models.WeeklyInterpretation{
				BodyFatTrend:          req.BodyFat.Summary,
				InflammationNotes:     "No inflammation indicators detected (mock)",
				LiquidRetentionNotes:  "No liquid retention indicators detected (mock)",
				ConsistencyAnalysis:   fmt.Sprintf("Trained %d day(s) this week (mock)", req.Metrics.TrainingDays),
				OverallInterpretation: fmt.Sprintf("Mock weekly interpretation for %s to %s", req.WeekStart.Format("2006-01-02"), req.WeekEnd.Format("2006-01-02")),
			}, nil
		},
		EstimateBodyFatFunc: func(_ context.Context, _ models.BodyFatRequest) (models.BodyFatEstimate, error) {
			return models.BodyFatEstimate{Min: 15.0, Max: 18.0, Confidence: "low"}, nil
		},
		InterpretCheatMealFunc: func(_ context.Context, req models.CheatMealRequest) (string, error) {
			return fmt.Sprintf("Mock impact estimate for: %s", req.Description), nil
		},
	}
}

// NewFailingProvider returns a Provider that always returns the given error.
func NewFailingProvider(err error) *Provider {
	return &Provider{
		ProviderName: "mock-failing",
		InterpretWeekFunc: func(_ context.Context, _ models.WeeklyInterpretationRequest) (models.WeeklyInterpretation, error) {
			return models.WeeklyInterpretation{}, err
		},
		EstimateBodyFatFunc: func(_ context.Context, _ models.BodyFatRequest) (models.BodyFatEstimate, error) {
			return models.BodyFatEstimate{}, err
		},
		InterpretCheatMealFunc: func(_ context.Context, _ models.CheatMealRequest) (string, error) {
			return "", err
		},
	}
}

// Compile-time check that Provider implements AIProvider.
var _ models.AIProvider = (*Provider)(nil)
