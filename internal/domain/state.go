package domain

import "strings"

// GameState is the snapshot the core consumes when planning retrieval and
// assembling prompts. It is owned and persisted by a collaborator; the core
// reads it, appends chat messages, and maintains the LastRAGContext slot.
type GameState struct {
	CampaignID   string   `json:"campaign_id"`
	CampaignGoal string   `json:"campaign_goal,omitempty"`
	WorldLore    []string `json:"world_lore,omitempty"`
	EventSummary []string `json:"event_summary,omitempty"`

	ActiveQuests map[string]Quest       `json:"active_quests,omitempty"`
	KnownNPCs    map[string]NPC         `json:"known_npcs,omitempty"`
	Party        map[string]PartyMember `json:"party,omitempty"`

	CurrentLocation Location      `json:"current_location"`
	Combat          CombatState   `json:"combat"`
	ChatHistory     []ChatMessage `json:"chat_history,omitempty"`

	// LastRAGContext is the single-slot context cache: the formatted
	// retrieval result of the current player turn, reused verbatim across
	// dice-roll continuations. Never persisted across restarts.
	LastRAGContext *string `json:"-"`

	// ContentPackPriority orders pack resolution for this campaign.
	ContentPackPriority []string `json:"content_pack_priority,omitempty"`
}

// Quest is an active objective shown in the static context block.
type Quest struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

// NPC is a known non-player character shown in the static context block.
type NPC struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	LastLocation string `json:"last_location,omitempty"`
}

// Location is the party's current position in the world.
type Location struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PartyMember is the prompt-facing view of a player character. Combat
// rendering reads PC hit points and conditions from here rather than from
// the combatant record.
type PartyMember struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Race       string   `json:"race,omitempty"`
	ClassName  string   `json:"char_class,omitempty"`
	Level      int      `json:"level,omitempty"`
	CurrentHP  int      `json:"current_hp"`
	MaxHP      int      `json:"max_hp"`
	ArmorClass int      `json:"armor_class,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
}

// CombatState tracks an active encounter.
type CombatState struct {
	IsActive         bool                    `json:"is_active"`
	Round            int                     `json:"round_number,omitempty"`
	CurrentTurnIndex int                     `json:"current_turn_index,omitempty"`
	Combatants       []Combatant             `json:"combatants,omitempty"`
	MonsterStats     map[string]MonsterSheet `json:"monster_stats,omitempty"`
}

// Combatant is one row of the initiative order. IsPlayer decides whether HP
// and conditions come from this record (NPCs) or from the party (PCs).
type Combatant struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Initiative int      `json:"initiative"`
	IsPlayer   bool     `json:"is_player"`
	CurrentHP  int      `json:"current_hp"`
	MaxHP      int      `json:"max_hp"`
	ArmorClass int      `json:"armor_class,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
}

// MonsterSheet is the minimal NPC stat reference kept with the combat state.
type MonsterSheet struct {
	Name       string   `json:"name"`
	InitialHP  int      `json:"initial_hp"`
	ArmorClass int      `json:"ac,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
}

// DefeatedCondition marks a combatant out of the fight regardless of HP.
const DefeatedCondition = "defeated"

// IsDefeated reports whether the combatant is out of the fight: at or below
// zero hit points, or carrying the defeated condition in any casing.
func (c Combatant) IsDefeated() bool {
	if c.CurrentHP <= 0 {
		return true
	}
	return hasDefeatedCondition(c.Conditions)
}

// IsDefeated is the party-member equivalent of Combatant.IsDefeated.
func (p PartyMember) IsDefeated() bool {
	if p.CurrentHP <= 0 {
		return true
	}
	return hasDefeatedCondition(p.Conditions)
}

func hasDefeatedCondition(conditions []string) bool {
	for _, cond := range conditions {
		if strings.EqualFold(strings.TrimSpace(cond), DefeatedCondition) {
			return true
		}
	}
	return false
}
