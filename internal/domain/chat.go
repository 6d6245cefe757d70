package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Chat roles. The core never emits any other role value.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry of the campaign chat history. Messages are owned
// by the game state (a collaborator persists them); the core reads them when
// assembling prompts and appends them when a turn completes.
type ChatMessage struct {
	ID           string `json:"id"`
	Role         string `json:"role"`
	Content      string `json:"content"`
	IsDiceResult bool   `json:"is_dice_result,omitempty"`
	// AIResponseJSON holds the raw structured response the assistant emitted
	// on this turn. When present it is preferred over Content during prompt
	// assembly so the model sees its own prior tool output verbatim.
	AIResponseJSON string    `json:"ai_response_json,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewChatMessage builds a message with a fresh id and the current time.
func NewChatMessage(role, content string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// errorDiagnosticPrefix marks operator-visible diagnostics appended after a
// failed AI turn. See IsErrorDiagnostic.
const errorDiagnosticPrefix = "(Error"

// IsErrorDiagnostic reports whether the message is a system-side error
// diagnostic. These are shown to the operator but must never be fed back
// into the model.
func (m ChatMessage) IsErrorDiagnostic() bool {
	return m.Role == RoleSystem && m.IsDiceResult && strings.HasPrefix(m.Content, errorDiagnosticPrefix)
}

// NewErrorDiagnostic builds the diagnostic appended when an AI turn fails.
func NewErrorDiagnostic(reason string) ChatMessage {
	msg := NewChatMessage(RoleSystem, "(Error: "+reason+")")
	msg.IsDiceResult = true
	return msg
}

// DiceRequest asks the player to roll dice. The core never resolves rolls;
// it passes requests through to the caller.
type DiceRequest struct {
	RequestID    string   `json:"request_id"`
	CharacterIDs []string `json:"character_ids,omitempty"`
	Type         string   `json:"type"`
	DiceFormula  string   `json:"dice_formula"`
	Reason       string   `json:"reason,omitempty"`
	Skill        string   `json:"skill,omitempty"`
	Ability      string   `json:"ability,omitempty"`
	DC           int      `json:"dc,omitempty"`
}

// AIResponse is the structured reply contract of the AI client collaborator.
type AIResponse struct {
	Narrative        string            `json:"narrative"`
	Reasoning        string            `json:"reasoning,omitempty"`
	DiceRequests     []DiceRequest     `json:"dice_requests,omitempty"`
	GameStateUpdates []GameStateUpdate `json:"game_state_updates,omitempty"`
	EndTurn          bool              `json:"end_turn,omitempty"`
}

// GameStateUpdate is one opaque state mutation proposed by the model. The
// core does not apply updates; the state-processor collaborator does.
type GameStateUpdate struct {
	Type  string         `json:"type"`
	Value map[string]any `json:"value,omitempty"`
}
