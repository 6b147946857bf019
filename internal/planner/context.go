package planner

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/shiftcast/shiftcast/internal/reasoning"
	"github.com/shiftcast/shiftcast/pkg/models"
)

// analyzeDemand asks the reasoning service how the scenario's
// environment shifts demand. Its output is advisory, so any failure,
// including retry exhaustion, degrades to the fixed fallback document
// instead of propagating.
func (p *Planner) analyzeDemand(ctx context.Context, scenario models.Scenario) *models.DemandPrediction {
	input := fmt.Sprintf(`SCENARIO:
%s

Analyze the environmental impact on demand and operations.`, jsonBlock(scenario))

	prediction, err := reasoning.WithRetry(ctx, p.retry, stageDemand, func(ctx context.Context) (*models.DemandPrediction, error) {
		payload, err := p.invoker.Invoke(ctx, p.demandSpec(), input)
		if err != nil {
			return nil, err
		}
		var out models.DemandPrediction
		if err := reasoning.DecodeInto(stageDemand, payload, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("Demand analysis failed, using fallback defaults")
		return models.FallbackDemandPrediction()
	}
	return prediction
}

// analyzeCapacity asks the reasoning service for the restaurant's
// throughput limits. Same fallback semantics as analyzeDemand.
func (p *Planner) analyzeCapacity(ctx context.Context, restaurant models.RestaurantConfig) *models.CapacityAnalysis {
	input := fmt.Sprintf(`RESTAURANT CONFIG:
%s

Calculate the operational capacity limits.`, jsonBlock(restaurant))

	analysis, err := reasoning.WithRetry(ctx, p.retry, stageCapacity, func(ctx context.Context) (*models.CapacityAnalysis, error) {
		payload, err := p.invoker.Invoke(ctx, p.capacitySpec(), input)
		if err != nil {
			return nil, err
		}
		var out models.CapacityAnalysis
		if err := reasoning.DecodeInto(stageCapacity, payload, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("Capacity analysis failed, using fallback defaults")
		return models.FallbackCapacityAnalysis()
	}
	return analysis
}

// sharedContext concatenates the two analysis documents into the
// opaque context string passed unchanged to every later stage of a
// session.
func sharedContext(demand *models.DemandPrediction, capacity *models.CapacityAnalysis) string {
	return fmt.Sprintf(`CONTEXT ANALYSIS:
%s

RESTAURANT CAPACITY:
%s`, jsonBlock(demand), jsonBlock(capacity))
}
