package enrich

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valorintel/discovery-cli/internal/config"
	"github.com/valorintel/discovery-cli/internal/model"
	"github.com/valorintel/discovery-cli/pkg/search"
)

func newTestEnricher(t *testing.T, srch search.Client, ai *fakeAI, fetcherURL string) (*Enricher, *RunState) {
	t.Helper()
	state := NewRunState()
	en := NewEnricher(
		NewGatherer(srch),
		NewFetcher(WithFetcherBaseURL(fetcherURL)),
		defaultRule(),
		NewInvoker(ai, config.AnthropicConfig{Model: "claude-haiku-4-5-20251001", MaxTokens: 1024}),
		state,
	)
	return en, state
}

func TestEnrichOne_QualifiedEntityAttemptsDeepSearch(t *testing.T) {
	t.Parallel()

	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Write([]byte("<html><body><p>Quadro Societário: União Federal detém o controle acionário.</p></body></html>"))
	}))
	defer srv.Close()

	srch := &fakeSearch{results: map[string][]search.Result{
		"CNPJ": {{Title: "Petrobras CNPJ 33.000.167/0001-01", URL: "https://cnpj.biz/33000167000101"}},
	}}
	ai := &fakeAI{resp: textResponse(`{"official_website": "https://petrobras.com.br", "corporate_group_notes": "State controlled", "found_brands": []}`)}

	en, state := newTestEnricher(t, srch, ai, srv.URL)
	out := en.EnrichOne(context.Background(), model.EntityInput{
		Name: "Petrobras", City: "Rio de Janeiro", Sector: "Petróleo", Revenue: "9000",
	})

	assert.Equal(t, int64(1), fetches.Load())
	assert.Equal(t, int64(1), state.Extractions())
	assert.Equal(t, "https://petrobras.com.br", out.OfficialWebsite)
	assert.Equal(t, "State controlled", out.CorporateGroupNotes)
	assert.Contains(t, out.Log, "stage: "+string(StageDeepSearching))
	assert.Contains(t, out.Log, "stage: "+string(StageDone))
	assert.Contains(t, state.Logs(), "Petrobras: stage: "+string(StageDone))

	// The extraction document must carry the deep-search evidence.
	require.Len(t, ai.last.Messages, 1)
	assert.Contains(t, ai.last.Messages[0].Content, "Quadro Societário")
}

func TestEnrichOne_UnqualifiedEntitySkipsFetcher(t *testing.T) {
	t.Parallel()

	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
	}))
	defer srv.Close()

	srch := &fakeSearch{results: map[string][]search.Result{
		"CNPJ": {{Title: "Lojas Renner CNPJ 92.754.738/0001-62"}},
	}}
	ai := &fakeAI{resp: textResponse(`{"found_brands": []}`)}

	en, state := newTestEnricher(t, srch, ai, srv.URL)
	out := en.EnrichOne(context.Background(), model.EntityInput{
		Name: "Lojas Renner", City: "Porto Alegre", Sector: "Varejo", Revenue: "100",
	})

	assert.Zero(t, fetches.Load())
	assert.Equal(t, int64(1), state.Extractions())
	assert.NotContains(t, out.Log, "stage: "+string(StageDeepSearching))
	assert.Empty(t, out.CorporateGroupNotes)
}

func TestEnrichOne_QualifiedWithoutCNPJSkipsFetch(t *testing.T) {
	t.Parallel()

	srch := &fakeSearch{}
	ai := &fakeAI{resp: textResponse(`{"found_brands": []}`)}

	en, _ := newTestEnricher(t, srch, ai, "http://127.0.0.1:1")
	out := en.EnrichOne(context.Background(), model.EntityInput{
		Name: "Itaúsa", Sector: "Holding", Revenue: "50",
	})

	assert.Contains(t, out.Log, "deep search skipped: no CNPJ resolved from input or evidence")
	assert.Contains(t, out.Log, "stage: "+string(StageDone))
}

func TestEnrichOne_ExtractionFailureDegrades(t *testing.T) {
	t.Parallel()

	srch := &fakeSearch{}
	ai := &fakeAI{err: errors.New("api unavailable")}

	en, state := newTestEnricher(t, srch, ai, "http://127.0.0.1:1")
	out := en.EnrichOne(context.Background(), model.EntityInput{
		Name: "Ambev", Sector: "Bebidas", Revenue: "200",
	})

	assert.Equal(t, int64(1), state.Extractions())
	assert.Equal(t, model.EmptyExtraction(), out.ExtractionResult)
	assert.Contains(t, out.Log, "stage: "+string(StageDone))

	var failed bool
	for _, line := range out.Log {
		if line == "extraction failed: extract: invoke: api unavailable" {
			failed = true
		}
	}
	assert.True(t, failed, "log should record the extraction failure")
}
