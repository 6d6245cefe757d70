package prompt

import (
	"context"
	"strings"

	"github.com/mmerah/ai-gamemaster/internal/config"
	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
)

// Assembler builds the ordered message list for the AI client. Slots, each
// optional, in order: system prompt, older history (token-trimmed), static
// context, dynamic context, retrieval context, recent history, trailing
// instruction.
type Assembler struct {
	counter TokenCounter
	cache   *ContextCache
	cfg     config.PromptConfig
}

// NewAssembler creates an assembler. A nil counter gets the cl100k_base
// tokenizer; a nil cache disables retrieval context.
func NewAssembler(counter TokenCounter, cache *ContextCache, cfg config.PromptConfig) *Assembler {
	if counter == nil {
		counter = NewTiktokenCounter()
	}
	return &Assembler{counter: counter, cache: cache, cfg: cfg}
}

// BuildMessages assembles the prompt for one AI round-trip. A non-nil action
// re-runs retrieval through the context cache; a nil action reuses the cached
// block (a dice-roll continuation). The fixed slots are costed first and
// older history is trimmed oldest-first to fit the remaining token budget,
// never splitting a message. When the tokenizer is unavailable the budget
// degrades to a message-count cap.
func (a *Assembler) BuildMessages(ctx context.Context, state *domain.GameState, action *string, instruction string) []domain.ChatMessage {
	timer := logging.StartTimer(logging.CategoryPrompt, "Assembler.BuildMessages")
	defer timer.Stop()

	ragBlock := ""
	if a.cache != nil {
		ragBlock = a.cache.Resolve(ctx, state, action)
	}

	staticBlock := buildStaticContext(state)
	dynamicBlock := buildDynamicContext(state)

	history := convertHistory(state.ChatHistory)
	recentN := a.cfg.RecentHistorySize
	if recentN < 0 {
		recentN = 0
	}
	split := len(history) - recentN
	if split < 0 {
		split = 0
	}
	older, recent := history[:split], history[split:]

	// Fixed slots are costed first; whatever remains goes to older history.
	fixedTokens := a.messageCost(systemPrompt)
	fixedCount := 1
	for _, m := range recent {
		fixedTokens += a.messageCost(m.Content)
	}
	fixedCount += len(recent)
	for _, block := range []string{staticBlock, dynamicBlock, ragBlock, instruction} {
		if block != "" {
			fixedTokens += a.messageCost(block)
			fixedCount++
		}
	}

	if a.counter.Available() {
		budget := a.cfg.TokenBudget
		if budget <= 0 {
			budget = 128000
		}
		older = a.trimToTokens(older, budget-fixedTokens)
	} else {
		older = a.trimToCount(older, fixedCount)
	}

	out := make([]domain.ChatMessage, 0, len(older)+len(recent)+5)
	out = append(out, domain.NewChatMessage(domain.RoleSystem, systemPrompt))
	out = append(out, older...)
	if staticBlock != "" {
		out = append(out, domain.NewChatMessage(domain.RoleSystem, staticBlock))
	}
	if dynamicBlock != "" {
		out = append(out, domain.NewChatMessage(domain.RoleSystem, dynamicBlock))
	}
	if ragBlock != "" {
		out = append(out, domain.NewChatMessage(domain.RoleSystem, ragBlock))
	}
	out = append(out, recent...)
	if instruction != "" {
		out = append(out, domain.NewChatMessage(domain.RoleSystem, instruction))
	}

	logging.PromptDebug("Assembled %d messages (%d older, %d recent)",
		len(out), len(older), len(recent))
	return out
}

// convertHistory applies the message conversion rules: error diagnostics are
// excluded, assistant messages prefer their structured response over plain
// content, and empty messages are dropped.
func convertHistory(history []domain.ChatMessage) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(history))
	excluded := 0
	for _, msg := range history {
		if msg.IsErrorDiagnostic() {
			excluded++
			continue
		}
		content := msg.Content
		if msg.Role == domain.RoleAssistant && msg.AIResponseJSON != "" {
			content = msg.AIResponseJSON
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		msg.Content = content
		out = append(out, msg)
	}
	if excluded > 0 {
		logging.PromptDebug("Excluded %d error diagnostics from prompt history", excluded)
	}
	return out
}

// trimToTokens keeps the largest suffix of older history that fits in the
// remaining budget, dropping oldest messages first.
func (a *Assembler) trimToTokens(older []domain.ChatMessage, remaining int) []domain.ChatMessage {
	if remaining <= 0 {
		if len(older) > 0 {
			logging.PromptDebug("Fixed slots consumed the token budget, dropped all %d older messages", len(older))
		}
		return nil
	}
	used := 0
	cut := 0
	for i := len(older) - 1; i >= 0; i-- {
		cost := a.messageCost(older[i].Content)
		if used+cost > remaining {
			cut = i + 1
			break
		}
		used += cost
	}
	if cut > 0 {
		logging.PromptDebug("Trimmed %d of %d older messages to fit the token budget", cut, len(older))
	}
	return older[cut:]
}

// trimToCount bounds older history when token counts are unavailable: the
// assembled list stays within the configured message-count soft cap.
func (a *Assembler) trimToCount(older []domain.ChatMessage, fixedCount int) []domain.ChatMessage {
	limit := a.cfg.FallbackMaxMessages
	if limit <= 0 {
		limit = 40
	}
	allowed := limit - fixedCount
	if allowed <= 0 {
		if len(older) > 0 {
			logging.PromptDebug("Message cap %d consumed by fixed slots, dropped all %d older messages", limit, len(older))
		}
		return nil
	}
	if len(older) <= allowed {
		return older
	}
	logging.PromptDebug("Tokenizer unavailable, kept %d of %d older messages", allowed, len(older))
	return older[len(older)-allowed:]
}

func (a *Assembler) messageCost(content string) int {
	return a.counter.Count(content) + a.cfg.TokensPerMessage
}
