package main

import (
	"time"

	"github.com/valorintel/discovery-cli/internal/enrich"
	anthropicpkg "github.com/valorintel/discovery-cli/pkg/anthropic"
	"github.com/valorintel/discovery-cli/pkg/search"
)

// buildEnricher wires the enrichment flow from config: search client,
// deep-search fetcher, qualification rule and extraction invoker, all
// sharing one run state.
func buildEnricher() (*enrich.Enricher, *enrich.RunState) {
	searchClient := search.NewClient(cfg.Search.Key,
		search.WithBaseURL(cfg.Search.BaseURL),
		search.WithMaxResults(cfg.Search.MaxResults),
		search.WithRateLimit(cfg.Search.RateQPS),
	)

	fetcher := enrich.NewFetcher(
		enrich.WithFetcherBaseURL(cfg.DeepSearch.BaseURL),
		enrich.WithFetcherTimeout(time.Duration(cfg.DeepSearch.TimeoutSecs)*time.Second),
	)

	rule := enrich.NewRule(cfg.Enrich.PrioritySectors, cfg.Enrich.RevenueThreshold)

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	invoker := enrich.NewInvoker(anthropicClient, cfg.Anthropic)

	state := enrich.NewRunState()
	return enrich.NewEnricher(enrich.NewGatherer(searchClient), fetcher, rule, invoker, state), state
}
