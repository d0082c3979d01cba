package enrich

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/valorintel/discovery-cli/internal/model"
)

// Stage identifies where an entity is in the enrichment flow. Recorded in
// the log trail so a partially-enriched record shows how far it got.
type Stage string

const (
	StageGathering     Stage = "gathering"
	StageQualifying    Stage = "qualifying"
	StageDeepSearching Stage = "deep_searching"
	StageExtracting    Stage = "extracting"
	StageNormalizing   Stage = "normalizing"
	StageDone          Stage = "done"
)

// Enricher runs a single entity through the full flow: evidence gathering,
// deep-search qualification, optional corporate-structure fetch, one
// extraction request, and normalization. It never returns an error; every
// failure degrades the record and is noted in its log trail.
type Enricher struct {
	gatherer *Gatherer
	fetcher  *Fetcher
	rule     Rule
	invoker  *Invoker
	state    *RunState
}

func NewEnricher(gatherer *Gatherer, fetcher *Fetcher, rule Rule, invoker *Invoker, state *RunState) *Enricher {
	return &Enricher{
		gatherer: gatherer,
		fetcher:  fetcher,
		rule:     rule,
		invoker:  invoker,
		state:    state,
	}
}

// EnrichOne processes one entity end to end.
func (en *Enricher) EnrichOne(ctx context.Context, e model.EntityInput) model.EnrichedEntity {
	logger := zap.L().With(zap.String("company", e.Name), zap.Int("rank", e.Rank))

	out := model.EnrichedEntity{
		EntityInput:      e,
		ExtractionResult: model.EmptyExtraction(),
	}
	stage := func(s Stage) {
		out.Log = append(out.Log, "stage: "+string(s))
	}

	stage(StageGathering)
	bundle, logs := en.gatherer.Gather(ctx, e)
	out.Log = append(out.Log, logs...)

	stage(StageQualifying)
	if en.rule.Qualifies(e.Sector, e.Revenue) {
		stage(StageDeepSearching)
		cnpj := ResolveCNPJ(e, bundle)
		if cnpj == "" {
			out.Log = append(out.Log, "deep search skipped: no CNPJ resolved from input or evidence")
		} else {
			excerpt, found := en.fetcher.Fetch(ctx, cnpj)
			bundle.DeepSearchExcerpt = excerpt
			out.Log = append(out.Log, excerptLogLine(cnpj, found, len(excerpt)))
		}
	} else {
		out.Log = append(out.Log, fmt.Sprintf("deep search not warranted (sector %q, revenue %q)", e.Sector, e.Revenue))
	}

	stage(StageExtracting)
	doc := BuildDocument(e, bundle)
	count := en.state.CountExtraction()
	logger.Debug("invoking extraction", zap.Int64("request_number", count))

	result, usage, err := en.invoker.Invoke(ctx, doc, bundle.DeepSearchExcerpt != "")
	en.state.AddUsage(usage)
	if err != nil {
		logger.Warn("extraction failed, emitting empty fields", zap.Error(err))
		out.Log = append(out.Log, "extraction failed: "+err.Error())
	}

	stage(StageNormalizing)
	out.ExtractionResult = result

	stage(StageDone)

	for _, line := range out.Log {
		en.state.Append(e.Name + ": " + line)
	}
	return out
}
