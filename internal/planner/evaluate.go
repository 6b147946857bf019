package planner

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/shiftcast/shiftcast/internal/reasoning"
	"github.com/shiftcast/shiftcast/pkg/models"
)

// EvaluateShift compares a completed session's best prediction against
// the shift's actual performance and extracts learning insights. One
// reasoning call, retried under the standard policy; failure
// propagates to the caller.
func (p *Planner) EvaluateShift(ctx context.Context, req models.EvaluationRequest) (*models.EvaluationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	requestID := p.newID()
	ctx, span := tracer.Start(ctx, "planner.evaluate_shift")
	defer span.End()
	span.SetAttributes(attribute.String("evaluation.request_id", requestID))

	best := req.PlanningResponse.BestEvaluation()
	log.Info().
		Str("request_id", requestID).
		Str("plan_id", best.Option.ID).
		Msg("Evaluating prediction vs actual performance")

	input := fmt.Sprintf(`AI PREDICTION:
Staffing: %s
Predicted Metrics: %s
Predicted Score: %.3f

ACTUAL RESULTS:
%s

Analyze the prediction accuracy. Calculate errors, identify root causes, and suggest model improvements.

Return response in the specified JSON format.`,
		jsonBlock(best.Option.Staffing), jsonBlock(best.Simulation.PredictedMetrics),
		best.Scores.Aggregate(), jsonBlock(req.ActualData))

	result, err := reasoning.WithRetry(ctx, p.retry, stageEvaluate, func(ctx context.Context) (*models.EvaluationResult, error) {
		payload, err := p.invoker.Invoke(ctx, p.evaluateSpec(), input)
		if err != nil {
			return nil, err
		}
		var out models.EvaluationResult
		if err := reasoning.DecodeInto(stageEvaluate, payload, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}

	quality := predictionQuality(result.AccuracyAnalysis["overall_prediction_quality"])
	log.Info().
		Str("request_id", requestID).
		Str("prediction_quality", quality).
		Msg("Evaluation complete")

	return &models.EvaluationResponse{
		RequestID:         requestID,
		Timestamp:         p.now(),
		Evaluation:        *result,
		PredictionQuality: quality,
	}, nil
}

// predictionQuality maps the evaluator's five-point accuracy rating
// onto the four-bucket response verdict. Unknown ratings land on
// "fair".
func predictionQuality(rating string) string {
	switch rating {
	case "excellent":
		return "excellent"
	case "good":
		return "good"
	case "acceptable":
		return "fair"
	case "poor":
		return "poor"
	default:
		return "fair"
	}
}
