package prompt

import (
	"context"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/kb"
	"github.com/mmerah/ai-gamemaster/internal/logging"
	"github.com/mmerah/ai-gamemaster/internal/planner"
	"github.com/mmerah/ai-gamemaster/internal/retrieval"
)

// Retriever executes planned queries. *retrieval.Orchestrator satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, action string, queries []planner.Query) *kb.Results
}

// ContextCache manages the single retrieval-context slot on the game state.
// One player turn often takes several AI round-trips (narrate, request dice,
// incorporate rolls); re-running retrieval mid-turn wastes latency and can
// destabilize the context, so continuations reuse the stored block verbatim.
type ContextCache struct {
	planner   *planner.Planner
	retriever Retriever
}

// NewContextCache wires the cache to a query planner and a retriever.
func NewContextCache(p *planner.Planner, r Retriever) *ContextCache {
	if p == nil {
		p = planner.NewPlanner()
	}
	return &ContextCache{planner: p, retriever: r}
}

// Resolve returns the retrieval context block for this call. A non-nil
// action starts a new turn: the slot is cleared, retrieval runs, and the
// formatted block is stored on the state. A nil action is a continuation:
// the stored block is returned as-is and the retriever is not consulted.
func (c *ContextCache) Resolve(ctx context.Context, state *domain.GameState, action *string) string {
	if action == nil {
		if state.LastRAGContext == nil {
			logging.PromptDebug("Continuation with no cached retrieval context")
			return ""
		}
		logging.PromptDebug("Reusing cached retrieval context (%d bytes)", len(*state.LastRAGContext))
		return *state.LastRAGContext
	}

	c.Clear(state)
	if c.retriever == nil {
		return ""
	}

	queries := c.planner.Plan(*action, state)
	results := c.retriever.Retrieve(ctx, *action, queries)
	formatted := retrieval.FormatContext(results)
	state.LastRAGContext = &formatted
	return formatted
}

// Clear empties the cache slot. Called automatically on a new action; callers
// also invoke it when the situation changes materially, e.g. combat ends.
func (c *ContextCache) Clear(state *domain.GameState) {
	state.LastRAGContext = nil
}
