// Package cost estimates run spend across the providers the pipeline
// calls: Anthropic extraction requests and search queries.
package cost

import (
	"github.com/valorintel/discovery-cli/internal/config"
	"github.com/valorintel/discovery-cli/pkg/anthropic"
)

// Calculator computes costs for API usage from configured rates.
type Calculator struct {
	rates config.PricingConfig
}

func NewCalculator(rates config.PricingConfig) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost of accumulated token usage for a model.
// Unknown models cost 0.
func (c *Calculator) Claude(model string, u anthropic.TokenUsage) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}

	inCost := (float64(u.InputTokens) / 1e6) * rate.Input
	outCost := (float64(u.OutputTokens) / 1e6) * rate.Output
	cwCost := (float64(u.CacheCreationInputTokens) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(u.CacheReadInputTokens) / 1e6) * rate.Input * rate.CacheReadMul

	return inCost + outCost + cwCost + crCost
}

// SearchQueries returns the flat cost of n search queries.
func (c *Calculator) SearchQueries(n int) float64 {
	return float64(n) * c.rates.Search.PerQuery
}

// Run estimates the total spend of a run: every entity costs two search
// queries plus its share of the extraction token usage.
func (c *Calculator) Run(model string, entities int, u anthropic.TokenUsage) float64 {
	return c.Claude(model, u) + c.SearchQueries(entities*2)
}

// DefaultRates returns the default pricing rates.
func DefaultRates() config.PricingConfig {
	return config.PricingConfig{
		Anthropic: map[string]config.ModelPricing{
			"claude-haiku-4-5-20251001": {
				Input: 0.80, Output: 4.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Search: config.SearchPricing{PerQuery: 0.005},
	}
}
