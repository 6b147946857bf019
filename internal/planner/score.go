package planner

import (
	"context"
	"fmt"

	"github.com/shiftcast/shiftcast/internal/reasoning"
	"github.com/shiftcast/shiftcast/pkg/models"
)

// score asks the scorer stage for the three per-objective proximity
// scores. Raw scores are clamped to [0,1] on arrival; the aggregate is
// never taken from the service output, callers compute it locally via
// Scores.Aggregate.
func (p *Planner) score(ctx context.Context, scenario models.Scenario, plan models.StaffingPlan, simulation *models.SimulationResult, targets *models.AlignmentTargets) (*models.Scores, error) {
	input := fmt.Sprintf(`SCENARIO:
%s

STAFFING OPTION:
%s

SIMULATION RESULTS:
%s

ALIGNMENT TARGETS:
%s

Evaluate the simulation outcomes against these targets.
Calculate proximity scores (1.0 = Target Met or Exceeded).`,
		jsonBlock(scenario), jsonBlock(plan), jsonBlock(simulation), jsonBlock(targets))

	return reasoning.WithRetry(ctx, p.retry, stageScore, func(ctx context.Context) (*models.Scores, error) {
		payload, err := p.invoker.Invoke(ctx, p.scoreSpec(), input)
		if err != nil {
			return nil, err
		}
		var scores models.Scores
		if err := reasoning.DecodeInto(stageScore, payload, &scores); err != nil {
			return nil, err
		}
		scores.Clamp()
		if scores.Ranking == "" {
			scores.Ranking = models.RankingForScore(scores.Aggregate())
		}
		return &scores, nil
	})
}
