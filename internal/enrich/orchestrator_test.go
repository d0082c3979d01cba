package enrich

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valorintel/discovery-cli/internal/config"
	"github.com/valorintel/discovery-cli/internal/model"
	"github.com/valorintel/discovery-cli/pkg/anthropic"
)

// slowAI answers extraction requests after a delay, echoing the company
// name from the document so ordering can be verified. It tracks the
// high-water mark of in-flight requests.
type slowAI struct {
	delay     time.Duration
	inFlight  atomic.Int64
	highWater atomic.Int64
	panicOn   string
}

func (f *slowAI) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		hw := f.highWater.Load()
		if cur <= hw || f.highWater.CompareAndSwap(hw, cur) {
			break
		}
	}

	doc := req.Messages[0].Content
	if f.panicOn != "" && strings.Contains(doc, f.panicOn) {
		panic("extraction blew up")
	}

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	name := ""
	for _, line := range strings.Split(doc, "\n") {
		if after, ok := strings.CutPrefix(line, "Company: "); ok {
			name = after
			break
		}
	}
	return textResponse(fmt.Sprintf(`{"official_website": "https://%s.example.com", "found_brands": []}`, strings.ToLower(name))), nil
}

func makeEntities(n int) []model.EntityInput {
	entities := make([]model.EntityInput, n)
	for i := range entities {
		entities[i] = model.EntityInput{
			Rank:   i + 1,
			Name:   fmt.Sprintf("Empresa%02d", i+1),
			City:   "São Paulo",
			Sector: "Varejo",
		}
	}
	return entities
}

func newTestOrchestrator(ai anthropic.Client, maxConcurrent int, opts ...OrchestratorOption) (*Orchestrator, *RunState) {
	state := NewRunState()
	en := NewEnricher(
		NewGatherer(&fakeSearch{}),
		NewFetcher(WithFetcherBaseURL("http://127.0.0.1:1")),
		defaultRule(),
		NewInvoker(ai, config.AnthropicConfig{Model: "claude-haiku-4-5-20251001", MaxTokens: 1024}),
		state,
	)
	return NewOrchestrator(en, maxConcurrent, opts...), state
}

func TestRun_ConfigErrors(t *testing.T) {
	t.Parallel()

	orch, _ := newTestOrchestrator(&slowAI{}, 0)
	_, err := orch.Run(context.Background(), makeEntities(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 1")

	orch, _ = newTestOrchestrator(&slowAI{}, 5)
	_, err = orch.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entities")
}

func TestRun_PreservesInputOrder(t *testing.T) {
	t.Parallel()

	orch, state := newTestOrchestrator(&slowAI{delay: 10 * time.Millisecond}, 5)
	entities := makeEntities(12)

	results, err := orch.Run(context.Background(), entities)
	require.NoError(t, err)
	require.Len(t, results, 12)

	for i, r := range results {
		assert.Equal(t, entities[i].Name, r.Name)
		assert.Equal(t, fmt.Sprintf("https://%s.example.com", strings.ToLower(entities[i].Name)), r.OfficialWebsite)
	}
	assert.Equal(t, int64(12), state.Extractions())
}

func TestRun_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	ai := &slowAI{delay: 30 * time.Millisecond}
	orch, _ := newTestOrchestrator(ai, 3)

	_, err := orch.Run(context.Background(), makeEntities(10))
	require.NoError(t, err)

	assert.LessOrEqual(t, ai.highWater.Load(), int64(3))
	assert.Greater(t, ai.highWater.Load(), int64(1), "workers should overlap")
}

func TestRun_LimitCapsAttempts(t *testing.T) {
	t.Parallel()

	orch, state := newTestOrchestrator(&slowAI{}, 5, WithLimit(4))

	results, err := orch.Run(context.Background(), makeEntities(10))
	require.NoError(t, err)
	assert.Len(t, results, 4)
	assert.Equal(t, int64(4), state.Extractions())
}

func TestRun_AggregatesLogTrail(t *testing.T) {
	t.Parallel()

	orch, state := newTestOrchestrator(&slowAI{}, 2)
	entities := makeEntities(3)

	results, err := orch.Run(context.Background(), entities)
	require.NoError(t, err)

	trail := state.Logs()
	require.NotEmpty(t, trail, "run state should carry the concatenated entity trails")

	for i, r := range results {
		require.NotEmpty(t, r.Log)
		assert.Contains(t, trail, entities[i].Name+": stage: "+string(StageDone))
	}
}

func TestRun_PanicIsolation(t *testing.T) {
	t.Parallel()

	orch, state := newTestOrchestrator(&slowAI{panicOn: "Empresa03"}, 2)
	entities := makeEntities(5)

	results, err := orch.Run(context.Background(), entities)
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, model.EmptyExtraction(), results[2].ExtractionResult)
	require.NotEmpty(t, results[2].Log)
	assert.Contains(t, results[2].Log[len(results[2].Log)-1], "panicked")

	var recorded bool
	for _, line := range state.Logs() {
		if strings.Contains(line, entities[2].Name) && strings.Contains(line, "panicked") {
			recorded = true
		}
	}
	assert.True(t, recorded, "run trail should record the panicked entity")

	for i, r := range results {
		if i == 2 {
			continue
		}
		assert.NotEmpty(t, r.OfficialWebsite, "sibling %d should still enrich", i)
	}
	assert.Equal(t, int64(5), state.Extractions())
}
