package enrich

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/valorintel/discovery-cli/pkg/anthropic"
)

// RunState carries the shared counters of one enrichment run. All methods
// are safe for concurrent use by the worker pool.
type RunState struct {
	RunID uuid.UUID

	extractions atomic.Int64

	mu    sync.Mutex
	usage anthropic.TokenUsage
	logs  []string
}

func NewRunState() *RunState {
	return &RunState{RunID: uuid.New()}
}

// CountExtraction records one extraction attempt. Called immediately
// before each request so that failed attempts are counted too.
func (s *RunState) CountExtraction() int64 {
	return s.extractions.Add(1)
}

// Extractions returns the number of extraction requests attempted so far.
func (s *RunState) Extractions() int64 {
	return s.extractions.Load()
}

// AddUsage accumulates token usage from one extraction response.
func (s *RunState) AddUsage(u anthropic.TokenUsage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage.Add(u)
}

// Usage returns the accumulated token usage.
func (s *RunState) Usage() anthropic.TokenUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// Append records run-level log lines.
func (s *RunState) Append(lines ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, lines...)
}

// Logs returns a copy of the run-level log lines.
func (s *RunState) Logs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.logs))
	copy(out, s.logs)
	return out
}
