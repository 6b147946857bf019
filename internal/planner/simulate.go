package planner

import (
	"context"
	"fmt"

	"github.com/shiftcast/shiftcast/internal/reasoning"
	"github.com/shiftcast/shiftcast/pkg/models"
)

// simulate predicts the operational outcome of running the shift with
// the given staffing allocation.
func (p *Planner) simulate(ctx context.Context, scenario models.Scenario, staffing models.Staffing, shared string) (*models.SimulationResult, error) {
	input := fmt.Sprintf(`SCENARIO:
%s

STAFFING:
%s

CONTEXT:
%s

Simulate this %s shift and predict outcomes. Provide detailed, realistic predictions in the specified JSON format.`,
		jsonBlock(scenario), jsonBlock(staffing), contextOrNone(shared), scenario.Shift)

	return reasoning.WithRetry(ctx, p.retry, stageSimulate, func(ctx context.Context) (*models.SimulationResult, error) {
		payload, err := p.invoker.Invoke(ctx, p.simulateSpec(), input)
		if err != nil {
			return nil, err
		}
		var sim models.SimulationResult
		if err := reasoning.DecodeInto(stageSimulate, payload, &sim); err != nil {
			return nil, err
		}
		if sim.Confidence == 0 {
			sim.Confidence = 0.8
		}
		if err := sim.Validate(); err != nil {
			return nil, reasoning.Malformed(stageSimulate, err)
		}
		return &sim, nil
	})
}
