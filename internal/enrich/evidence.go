package enrich

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/valorintel/discovery-cli/internal/model"
	"github.com/valorintel/discovery-cli/pkg/search"
)

// QueryKind selects the query template used for a lookup.
type QueryKind string

const (
	QueryOfficial QueryKind = "official"
	QueryTaxID    QueryKind = "cnpj"
)

// BuildQuery formats the search query for an entity and query category.
func BuildQuery(e model.EntityInput, kind QueryKind) string {
	base := strings.TrimSpace(e.Name)
	city := strings.TrimSpace(e.City)

	var q string
	switch kind {
	case QueryTaxID:
		q = fmt.Sprintf("%s %s CNPJ Receita Federal", base, city)
	default:
		q = fmt.Sprintf("%s %s site oficial", base, city)
	}
	return strings.Join(strings.Fields(q), " ")
}

// Gatherer issues the two lookup queries per entity and normalizes results
// into ranked evidence.
type Gatherer struct {
	search search.Client
}

// NewGatherer creates a Gatherer backed by the given search client.
func NewGatherer(client search.Client) *Gatherer {
	return &Gatherer{search: client}
}

// Gather runs the official-identity and tax-id queries for one entity.
// A failed query degrades to an empty result sequence; the returned log
// lines record what happened. Gather never returns an error.
func (g *Gatherer) Gather(ctx context.Context, e model.EntityInput) (model.EvidenceBundle, []string) {
	var logs []string
	bundle := model.EvidenceBundle{}

	bundle.Official, logs = g.runQuery(ctx, e, QueryOfficial, logs)
	bundle.TaxID, logs = g.runQuery(ctx, e, QueryTaxID, logs)

	return bundle, logs
}

func (g *Gatherer) runQuery(ctx context.Context, e model.EntityInput, kind QueryKind, logs []string) ([]model.EvidenceItem, []string) {
	query := BuildQuery(e, kind)

	results, err := g.search.Search(ctx, query)
	if err != nil {
		zap.L().Warn("evidence: search failed",
			zap.String("entity", e.Name),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		logs = append(logs, fmt.Sprintf("evidence: %s query failed, continuing with partial evidence", kind))
		return []model.EvidenceItem{}, logs
	}

	items := make([]model.EvidenceItem, 0, len(results))
	for _, r := range results {
		items = append(items, model.EvidenceItem{
			Title:   strings.TrimSpace(r.Title),
			Link:    strings.TrimSpace(r.URL),
			Snippet: strings.TrimSpace(r.Snippet),
		})
	}
	logs = append(logs, fmt.Sprintf("evidence: %s query returned %d results", kind, len(items)))
	return items, logs
}

// ResolveCNPJ returns the usable 14-digit tax id for an entity: the cleaned
// KnownCNPJ when valid, otherwise the first plausible CNPJ found in the
// tax-id evidence text. Returns "" when none is available.
func ResolveCNPJ(e model.EntityInput, bundle model.EvidenceBundle) string {
	if c := model.CleanCNPJ(e.KnownCNPJ); model.ValidCNPJ(c) {
		return c
	}
	for _, item := range bundle.TaxID {
		text := item.Title + " " + item.Snippet + " " + item.Link
		if c := model.FindCNPJ(text); c != "" {
			return c
		}
	}
	return ""
}
