package planner

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shiftcast/shiftcast/internal/reasoning"
	"github.com/shiftcast/shiftcast/pkg/models"
)

// generateInitialPlan invokes the operator stage for the session's
// first candidate. A failure here is fatal to the whole run; the
// caller propagates it.
func (p *Planner) generateInitialPlan(ctx context.Context, scenario models.Scenario, constraints *models.Constraints, priority models.OperatorPriority, shared string) (*models.StaffingPlan, error) {
	input := fmt.Sprintf(`SCENARIO:
%s

CONSTRAINTS:
%s

CONTEXT:
%s

OPERATOR PRIORITY: %s

Generate exactly ONE staffing plan in the specified JSON format.`,
		jsonBlock(scenario), jsonBlock(constraints), contextOrNone(shared), priority)

	return reasoning.WithRetry(ctx, p.retry, stageGenerate, func(ctx context.Context) (*models.StaffingPlan, error) {
		payload, err := p.invoker.Invoke(ctx, p.generateSpec(), input)
		if err != nil {
			return nil, err
		}
		return decodePlan(stageGenerate, payload)
	})
}

// generateRefinedPlan invokes the shadow-operator stage with the
// previous best plan and the corrective feedback for this round.
func (p *Planner) generateRefinedPlan(ctx context.Context, scenario models.Scenario, constraints *models.Constraints, feedback string, previous models.StaffingPlan, shared string) (*models.StaffingPlan, error) {
	input := fmt.Sprintf(`SCENARIO:
%s

CONSTRAINTS:
%s

CONTEXT:
%s

PREVIOUS PLAN:
%s

FEEDBACK FOR IMPROVEMENT:
%s

Generate ONE refined staffing plan that addresses the feedback.`,
		jsonBlock(scenario), jsonBlock(constraints), contextOrNone(shared), jsonBlock(previous), feedback)

	return reasoning.WithRetry(ctx, p.retry, stageRefine, func(ctx context.Context) (*models.StaffingPlan, error) {
		payload, err := p.invoker.Invoke(ctx, p.refineSpec(), input)
		if err != nil {
			return nil, err
		}
		return decodePlan(stageRefine, payload)
	})
}

// decodePlan parses a generator's payload into a StaffingPlan. A
// missing id gets a generated one; anything else structurally invalid
// is malformed output.
func decodePlan(stage, payload string) (*models.StaffingPlan, error) {
	var plan models.StaffingPlan
	if err := reasoning.DecodeInto(stage, payload, &plan); err != nil {
		return nil, err
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if err := plan.Validate(); err != nil {
		return nil, reasoning.Malformed(stage, err)
	}
	return &plan, nil
}
