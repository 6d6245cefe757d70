package prompt

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/mmerah/ai-gamemaster/internal/kb"
	"github.com/mmerah/ai-gamemaster/internal/planner"
)

// mockCounter is a deterministic TokenCounter for tests: one token per
// whitespace-separated word. Set unavailable to exercise the message-count
// fallback.
type mockCounter struct {
	unavailable bool
	CountFunc   func(text string) int
}

func (m *mockCounter) Count(text string) int {
	if m.unavailable {
		return 0
	}
	if m.CountFunc != nil {
		return m.CountFunc(text)
	}
	return len(strings.Fields(text))
}

func (m *mockCounter) Available() bool { return !m.unavailable }

// mockRetriever records invocations and returns scripted results.
type mockRetriever struct {
	calls        atomic.Int64
	lastAction   string
	lastQueries  []planner.Query
	RetrieveFunc func(ctx context.Context, action string, queries []planner.Query) *kb.Results
}

func (m *mockRetriever) Retrieve(ctx context.Context, action string, queries []planner.Query) *kb.Results {
	m.calls.Add(1)
	m.lastAction = action
	m.lastQueries = queries
	if m.RetrieveFunc != nil {
		return m.RetrieveFunc(ctx, action, queries)
	}
	return &kb.Results{
		Items: []kb.Item{{
			Content:        "Fireball: a bright streak flashes to a point you choose.",
			Source:         "spells",
			RelevanceScore: 0.9,
		}},
		TotalQueries: 1,
	}
}
