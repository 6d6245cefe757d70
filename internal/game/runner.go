// Package game drives one game-master turn end to end: plan, retrieve,
// assemble, call the model, and append the outcome to the chat history.
package game

import (
	"context"
	"encoding/json"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
	"github.com/mmerah/ai-gamemaster/internal/prompt"
)

// Client is the AI collaborator contract: an ordered message list in, a
// structured response out. A nil response with a nil error means the model
// produced nothing usable after retries. *ai.Client satisfies it.
type Client interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (*domain.AIResponse, error)
}

// diceInstruction trails the prompt on dice continuations.
const diceInstruction = "The player has submitted the requested dice rolls. Resolve them and continue the scene."

// Runner owns the turn loop for one campaign process.
type Runner struct {
	assembler *prompt.Assembler
	cache     *prompt.ContextCache
	client    Client
}

// NewRunner wires the turn loop. The cache must be the same instance the
// assembler uses, so material events can drop the retrieval context.
func NewRunner(assembler *prompt.Assembler, cache *prompt.ContextCache, client Client) *Runner {
	return &Runner{assembler: assembler, cache: cache, client: client}
}

// HandleAction runs a full player turn: the action is appended to the chat
// history, retrieval re-runs for it, and the model's reply (or a diagnostic
// on failure) is appended behind it. Returns the structured response, or nil
// when the model produced nothing usable.
func (r *Runner) HandleAction(ctx context.Context, state *domain.GameState, action string) (*domain.AIResponse, error) {
	logging.CampaignDebug("Player action in campaign %s: %q", state.CampaignID, action)
	state.ChatHistory = append(state.ChatHistory, domain.NewChatMessage(domain.RoleUser, action))

	messages := r.assembler.BuildMessages(ctx, state, &action, "")
	return r.dispatch(ctx, state, messages)
}

// HandleDiceSubmission feeds rolled results back into the current turn. The
// null action keeps the cached retrieval context from the opening action, so
// the model resolves the rolls against the same knowledge it narrated from.
func (r *Runner) HandleDiceSubmission(ctx context.Context, state *domain.GameState, results string) (*domain.AIResponse, error) {
	logging.CampaignDebug("Dice submission in campaign %s", state.CampaignID)
	msg := domain.NewChatMessage(domain.RoleUser, results)
	msg.IsDiceResult = true
	state.ChatHistory = append(state.ChatHistory, msg)

	messages := r.assembler.BuildMessages(ctx, state, nil, diceInstruction)
	return r.dispatch(ctx, state, messages)
}

// ClearContext drops the cached retrieval block. The state processor calls
// this on material changes the planner cannot see, e.g. combat ending.
func (r *Runner) ClearContext(state *domain.GameState) {
	r.cache.Clear(state)
}

func (r *Runner) dispatch(ctx context.Context, state *domain.GameState, messages []domain.ChatMessage) (*domain.AIResponse, error) {
	resp, err := r.client.Complete(ctx, messages)
	if err != nil {
		state.ChatHistory = append(state.ChatHistory,
			domain.NewErrorDiagnostic("AI request failed: "+err.Error()))
		return nil, err
	}
	if resp == nil {
		logging.Campaign("AI returned no usable response for campaign %s", state.CampaignID)
		state.ChatHistory = append(state.ChatHistory,
			domain.NewErrorDiagnostic("the AI did not return a usable response"))
		return nil, nil
	}

	assistant := domain.NewChatMessage(domain.RoleAssistant, resp.Narrative)
	if raw, marshalErr := json.Marshal(resp); marshalErr == nil {
		assistant.AIResponseJSON = string(raw)
	}
	state.ChatHistory = append(state.ChatHistory, assistant)

	logging.CampaignDebug("Turn complete: %d dice requests, %d state updates, end_turn=%v",
		len(resp.DiceRequests), len(resp.GameStateUpdates), resp.EndTurn)
	return resp, nil
}
