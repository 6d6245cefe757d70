package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
)

// systemPrompt is the fixed instruction block sent as the first message of
// every assembled prompt.
const systemPrompt = `You are the Game Master of a Dungeons & Dragons 5th Edition campaign. You narrate the world, voice every non-player character, adjudicate the rules, and keep the story moving.

Respond with a single JSON object:
  narrative          - the prose shown to the players
  reasoning          - a short private note on your rules decisions
  dice_requests      - rolls you need before resolving the action; each entry names the characters, the roll type, the dice formula, and the DC when one applies
  game_state_updates - structural changes (HP, conditions, quests, location)
  end_turn           - true once the current combatant's turn is fully resolved

Ground rulings in the rules excerpts and setting material provided below. When the rules are silent, favor the interpretation that keeps the game fair and fun. Never roll dice yourself; always ask through dice_requests. Keep narration in second person and do not reveal hidden statistics.`

// =============================================================================
// STATIC CONTEXT
// =============================================================================

// buildStaticContext renders the slow-moving campaign facts: goal, lore,
// quests, NPCs, and the running event summary. Returns "" when the state has
// none of them.
func buildStaticContext(state *domain.GameState) string {
	var b strings.Builder

	if goal := strings.TrimSpace(state.CampaignGoal); goal != "" {
		fmt.Fprintf(&b, "Campaign Goal: %s\n", goal)
	}

	if len(state.WorldLore) > 0 {
		b.WriteString("\nWorld Lore:\n")
		for _, lore := range state.WorldLore {
			fmt.Fprintf(&b, "- %s\n", lore)
		}
	}

	if len(state.ActiveQuests) > 0 {
		b.WriteString("\nActive Quests:\n")
		for _, id := range sortedKeys(state.ActiveQuests) {
			quest := state.ActiveQuests[id]
			fmt.Fprintf(&b, "- %s", quest.Title)
			if quest.Status != "" {
				fmt.Fprintf(&b, " (%s)", quest.Status)
			}
			if quest.Description != "" {
				fmt.Fprintf(&b, ": %s", quest.Description)
			}
			b.WriteString("\n")
		}
	}

	if len(state.KnownNPCs) > 0 {
		b.WriteString("\nKnown NPCs:\n")
		for _, id := range sortedKeys(state.KnownNPCs) {
			npc := state.KnownNPCs[id]
			fmt.Fprintf(&b, "- %s", npc.Name)
			if npc.Description != "" {
				fmt.Fprintf(&b, ": %s", npc.Description)
			}
			if npc.LastLocation != "" {
				fmt.Fprintf(&b, " (last seen: %s)", npc.LastLocation)
			}
			b.WriteString("\n")
		}
	}

	if len(state.EventSummary) > 0 {
		b.WriteString("\nRecent Events:\n")
		for _, event := range state.EventSummary {
			fmt.Fprintf(&b, "- %s\n", event)
		}
	}

	if b.Len() == 0 {
		return ""
	}
	return "=== CAMPAIGN CONTEXT ===\n" + strings.TrimRight(b.String(), "\n")
}

// =============================================================================
// DYNAMIC CONTEXT
// =============================================================================

// buildDynamicContext renders the fast-moving situation: party roster,
// current location, and the combat block. Returns "" when there is nothing
// to show. May reset an out-of-range combat turn index on the state.
func buildDynamicContext(state *domain.GameState) string {
	var b strings.Builder

	if len(state.Party) > 0 {
		b.WriteString("Party:\n")
		for _, id := range sortedKeys(state.Party) {
			b.WriteString(formatPartyMember(state.Party[id]))
			b.WriteString("\n")
		}
	}

	if state.CurrentLocation.Name != "" {
		fmt.Fprintf(&b, "\nLocation: %s\n", state.CurrentLocation.Name)
		if state.CurrentLocation.Description != "" {
			fmt.Fprintf(&b, "%s\n", state.CurrentLocation.Description)
		}
	}

	if state.Combat.IsActive {
		b.WriteString("\n")
		b.WriteString(formatCombat(state))
	}

	if b.Len() == 0 {
		return ""
	}
	return "=== CURRENT SITUATION ===\n" + strings.TrimRight(strings.TrimLeft(b.String(), "\n"), "\n")
}

func formatPartyMember(m domain.PartyMember) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- %s", m.Name)
	if m.Race != "" || m.ClassName != "" {
		b.WriteString(" (")
		b.WriteString(strings.TrimSpace(m.Race + " " + m.ClassName))
		if m.Level > 0 {
			fmt.Fprintf(&b, " %d", m.Level)
		}
		b.WriteString(")")
	}
	fmt.Fprintf(&b, ": HP %d/%d", m.CurrentHP, m.MaxHP)
	if m.ArmorClass > 0 {
		fmt.Fprintf(&b, ", AC %d", m.ArmorClass)
	}
	if len(m.Conditions) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(m.Conditions, ", "))
	}
	return b.String()
}

// formatCombat renders the initiative order with a "->" marker on the active
// combatant. PC rows read hit points and conditions from the party; NPC rows
// read the combatant record, backfilled from the monster sheet when the
// record has no max HP. An out-of-range turn index is reset to 0.
func formatCombat(state *domain.GameState) string {
	combat := &state.Combat

	var b strings.Builder
	fmt.Fprintf(&b, "Combat: Round %d\n", combat.Round)
	if len(combat.Combatants) == 0 {
		return b.String()
	}

	if combat.CurrentTurnIndex < 0 || combat.CurrentTurnIndex >= len(combat.Combatants) {
		logging.Get(logging.CategoryPrompt).Warn(
			"Combat turn index %d out of range for %d combatants, resetting to 0",
			combat.CurrentTurnIndex, len(combat.Combatants))
		combat.CurrentTurnIndex = 0
	}

	b.WriteString("Turn order:\n")
	for i, c := range combat.Combatants {
		marker := "   "
		if i == combat.CurrentTurnIndex {
			marker = "-> "
		}
		b.WriteString(marker)
		b.WriteString(formatCombatant(state, c))
		b.WriteString("\n")
	}
	return b.String()
}

func formatCombatant(state *domain.GameState, c domain.Combatant) string {
	hp, maxHP, ac := c.CurrentHP, c.MaxHP, c.ArmorClass
	conditions := c.Conditions
	defeated := c.IsDefeated()

	if c.IsPlayer {
		if member, ok := state.Party[c.ID]; ok {
			hp, maxHP, ac = member.CurrentHP, member.MaxHP, member.ArmorClass
			conditions = member.Conditions
			defeated = member.IsDefeated()
		} else {
			logging.PromptDebug("Combatant %q marked as player but absent from party", c.ID)
		}
	} else if sheet, ok := state.Combat.MonsterStats[c.ID]; ok {
		if maxHP == 0 {
			maxHP = sheet.InitialHP
		}
		if ac == 0 {
			ac = sheet.ArmorClass
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: HP %d/%d", c.Name, hp, maxHP)
	if ac > 0 {
		fmt.Fprintf(&b, ", AC %d", ac)
	}
	if len(conditions) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(conditions, ", "))
	}
	if defeated {
		b.WriteString(" [Defeated]")
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
