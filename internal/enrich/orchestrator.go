package enrich

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valorintel/discovery-cli/internal/model"
)

// Orchestrator fans entities out to a bounded worker pool. Results come
// back in input order regardless of completion order, and one entity's
// failure or panic never disturbs its siblings.
type Orchestrator struct {
	enricher      *Enricher
	maxConcurrent int
	limit         int
}

type OrchestratorOption func(*Orchestrator)

// WithLimit caps how many entities from the head of the input are
// processed. Entities beyond the cap are never attempted and never hit
// the request counter. Zero or negative means no cap.
func WithLimit(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.limit = n
	}
}

func NewOrchestrator(enricher *Enricher, maxConcurrent int, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		enricher:      enricher,
		maxConcurrent: maxConcurrent,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run enriches all entities with at most maxConcurrent in flight. The
// returned slice is the same length and order as the (possibly limited)
// input. Only configuration problems return an error; per-entity failures
// surface inside the records themselves.
func (o *Orchestrator) Run(ctx context.Context, entities []model.EntityInput) ([]model.EnrichedEntity, error) {
	if o.maxConcurrent < 1 {
		return nil, eris.Errorf("enrich: max concurrent entities must be at least 1, got %d", o.maxConcurrent)
	}
	if len(entities) == 0 {
		return nil, eris.New("enrich: no entities to process")
	}

	if o.limit > 0 && len(entities) > o.limit {
		zap.L().Info("limiting run",
			zap.Int("input", len(entities)),
			zap.Int("limit", o.limit))
		entities = entities[:o.limit]
	}

	zap.L().Info("starting enrichment run",
		zap.Int("entities", len(entities)),
		zap.Int("max_concurrent", o.maxConcurrent))

	results := make([]model.EnrichedEntity, len(entities))

	var g errgroup.Group
	g.SetLimit(o.maxConcurrent)
	for i, e := range entities {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					zap.L().Error("enrichment worker panicked",
						zap.String("company", e.Name),
						zap.Any("panic", r))
					line := fmt.Sprintf("enrichment panicked: %v", r)
					results[i] = model.EnrichedEntity{
						EntityInput:      e,
						ExtractionResult: model.EmptyExtraction(),
						Log:              []string{line},
					}
					o.enricher.state.Append(e.Name + ": " + line)
				}
			}()
			results[i] = o.enricher.EnrichOne(ctx, e)
			return nil
		})
	}

	// Workers never return errors, so Wait only gates completion.
	_ = g.Wait()

	return results, nil
}
