package rewriter

// modelCost holds per-1K-token pricing in USD.
type modelCost struct {
	input  float64
	output float64
}

// modelCosts is the pricing table for cost estimation. Unknown models fall
// back to the gpt-4-turbo row.
var modelCosts = map[string]modelCost{
	"gpt-4-turbo":     {input: 0.01, output: 0.03},
	"gpt-4":           {input: 0.03, output: 0.06},
	"gpt-3.5-turbo":   {input: 0.0005, output: 0.0015},
	"claude-3-opus":   {input: 0.015, output: 0.075},
	"claude-3-sonnet": {input: 0.003, output: 0.015},
	"local":           {},
}

const fallbackCostModel = "gpt-4-turbo"

// EstimateCost is a pure function of (model, tokens). The token count is
// apportioned 60% input / 40% output, matching how prompt-heavy doc rewrites
// typically split.
func EstimateCost(model string, tokens int) float64 {
	cost, ok := modelCosts[model]
	if !ok {
		cost = modelCosts[fallbackCostModel]
	}
	inputTokens := float64(tokens) * 0.6
	outputTokens := float64(tokens) * 0.4
	return inputTokens/1000*cost.input + outputTokens/1000*cost.output
}
