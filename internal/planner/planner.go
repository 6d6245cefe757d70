// Package planner turns a raw player action plus a game-state snapshot into
// an ordered list of retrieval queries. The extractor is deterministic and
// rule-based: same action and state, same plan.
package planner

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mmerah/ai-gamemaster/internal/domain"
	"github.com/mmerah/ai-gamemaster/internal/logging"
)

// =============================================================================
// QUERY TYPES
// =============================================================================

// QueryKind classifies a planned query. Kinds double as the priority order
// for downstream budget allocation.
type QueryKind string

const (
	KindSpellCasting QueryKind = "spell_casting"
	KindCombat       QueryKind = "combat"
	KindSkillCheck   QueryKind = "skill_check"
	KindRulesLookup  QueryKind = "rules_lookup"
	KindSocial       QueryKind = "social"
	KindExploration  QueryKind = "exploration"
	KindGeneral      QueryKind = "general"
)

// kindPriority orders kinds for retrieval budget allocation; lower runs first.
var kindPriority = map[QueryKind]int{
	KindSpellCasting: 0,
	KindCombat:       1,
	KindSkillCheck:   2,
	KindRulesLookup:  3,
	KindSocial:       4,
	KindExploration:  5,
	KindGeneral:      6,
}

// Priority returns the retrieval priority of a kind; lower is earlier.
func (k QueryKind) Priority() int {
	if p, ok := kindPriority[k]; ok {
		return p
	}
	return len(kindPriority)
}

// Query is one planned retrieval request.
type Query struct {
	Text         string
	Kind         QueryKind
	ContextHints map[string]string
	// KBTypeFilter restricts the knowledge base sources searched; empty
	// means all sources.
	KBTypeFilter []string
}

// =============================================================================
// PLANNER
// =============================================================================

// Caps keep one verbose action from flooding retrieval.
const (
	maxSpellCandidates    = 3
	maxCreatureCandidates = 2
	maxSkillCandidates    = 2
	npcLookbackMessages   = 10
)

// spellVerbPattern captures a candidate spell name after a casting verb,
// stopping at a target clause or punctuation. The bare "use" verbs are
// accepted only for names on the curated list (players "use" swords too).
var spellVerbPattern = regexp.MustCompile(
	`\b(cast|casts|casting|invoke|invokes|invoking|use|uses|using)\s+(?:the\s+|a\s+|an\s+|my\s+)?([a-z' ]+?)(?:\s+(?:at|on|against|upon|toward|towards|into)\b|[.,!?;:]|$)`)

// npcPattern finds a capitalized name directly before a speech verb.
var npcPattern = regexp.MustCompile(
	`([A-Z][a-zA-Z]+)\s+(?:says|said|tells|told|asks|asked|nods|nodded|replies|replied|whispers|whispered|shouts|shouted|smiles|laughs)\b`)

// Planner is the deterministic query extractor. Stateless and safe for
// concurrent use.
type Planner struct{}

// NewPlanner creates a query planner.
func NewPlanner() *Planner { return &Planner{} }

// Plan extracts retrieval queries from a player action. Queries come back in
// priority order: spell_casting > combat > skill_check > rules_lookup >
// social > exploration > general. The trailing general query always carries
// the raw action; an empty action yields exactly that one query.
func (p *Planner) Plan(action string, state *domain.GameState) []Query {
	raw := strings.TrimSpace(action)
	npc := latestNPC(state)

	if raw == "" {
		logging.PlannerDebug("Empty action: general query only")
		return []Query{generalQuery(raw, npc)}
	}

	lower := strings.ToLower(raw)
	norm := normalizeText(raw)
	var queries []Query

	for _, spell := range p.spellCandidates(lower, norm) {
		display := titleWords(spell)
		queries = append(queries, Query{
			Text:         "spell " + display,
			Kind:         KindSpellCasting,
			ContextHints: map[string]string{"spell": display},
			KBTypeFilter: []string{"spells"},
		})
	}

	if containsAnyWord(norm, combatVerbs) {
		queries = append(queries, Query{
			Text:         "combat rules: " + raw,
			Kind:         KindCombat,
			ContextHints: map[string]string{},
			KBTypeFilter: []string{"rules", "mechanics"},
		})
	}
	for _, creature := range p.creatureCandidates(norm, state) {
		queries = append(queries, Query{
			Text:         "monster " + creature + " statistics",
			Kind:         KindCombat,
			ContextHints: map[string]string{"creature": creature},
			KBTypeFilter: []string{"monsters"},
		})
	}

	for _, skill := range p.skillCandidates(norm) {
		queries = append(queries, Query{
			Text:         skill + " skill check rules",
			Kind:         KindSkillCheck,
			ContextHints: map[string]string{"skill": skill},
			KBTypeFilter: []string{"mechanics", "rules"},
		})
	}

	if phrase := matchPhrase(norm, rulesPhrases); phrase != "" {
		queries = append(queries, Query{
			Text:         raw,
			Kind:         KindRulesLookup,
			ContextHints: map[string]string{"phrase": phrase},
			KBTypeFilter: []string{"rules"},
		})
	}

	if containsAnyWord(norm, socialVerbs) {
		hints := map[string]string{}
		if npc != "" {
			hints["npc"] = npc
		}
		queries = append(queries, Query{
			Text:         "social interaction: " + raw,
			Kind:         KindSocial,
			ContextHints: hints,
		})
	}

	if containsAnyWord(norm, explorationVerbs) {
		queries = append(queries, Query{
			Text:         "exploration: " + raw,
			Kind:         KindExploration,
			ContextHints: map[string]string{},
		})
	}

	queries = append(queries, generalQuery(raw, npc))

	logging.PlannerDebug("Planned %d queries for action %q", len(queries), raw)
	return queries
}

func generalQuery(raw, npc string) Query {
	hints := map[string]string{}
	if npc != "" {
		hints["npc"] = npc
	}
	return Query{Text: raw, Kind: KindGeneral, ContextHints: hints}
}

// spellCandidates merges curated-list hits with cast-verb captures, collapsing
// duplicates so the most recent mention wins ordering.
func (p *Planner) spellCandidates(lower, norm string) []string {
	var candidates []string
	for _, spell := range commonSpells {
		if containsPhrase(norm, spell) {
			candidates = append(candidates, spell)
		}
	}

	for _, m := range spellVerbPattern.FindAllStringSubmatch(lower, -1) {
		verb, captured := m[1], strings.TrimSpace(m[2])
		captured = strings.Join(strings.Fields(captured), " ")
		if captured == "" || len(captured) > 40 {
			continue
		}
		// "use"/"using" is too generic to trust for arbitrary names.
		if strings.HasPrefix(verb, "us") && !onList(captured, commonSpells) {
			continue
		}
		candidates = append(candidates, captured)
	}

	candidates = dedupeKeepLast(candidates)
	if len(candidates) > maxSpellCandidates {
		candidates = candidates[:maxSpellCandidates]
	}
	return candidates
}

// creatureCandidates matches combatant names from the active encounter first,
// then the common-creature list. Longer names win over their substrings so
// "dire wolf" does not also surface "wolf".
func (p *Planner) creatureCandidates(norm string, state *domain.GameState) []string {
	var names []string
	if state != nil {
		for _, c := range state.Combat.Combatants {
			if !c.IsPlayer && c.Name != "" {
				names = append(names, strings.ToLower(c.Name))
			}
		}
	}
	names = append(names, commonCreatures...)

	sort.SliceStable(names, func(i, j int) bool {
		return len(names[i]) > len(names[j])
	})

	var out []string
	for _, name := range names {
		if len(out) >= maxCreatureCandidates {
			break
		}
		if !containsPhrase(norm, name) {
			continue
		}
		covered := false
		for _, accepted := range out {
			if strings.Contains(accepted, name) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, name)
		}
	}
	return out
}

func (p *Planner) skillCandidates(norm string) []string {
	var out []string
	for _, skill := range canonicalSkills {
		if len(out) >= maxSkillCandidates {
			break
		}
		if containsPhrase(norm, skill) || containsPhrase(norm, skill+" check") {
			out = append(out, skill)
		}
	}
	return out
}

// latestNPC scans the most recent chat messages for a capitalized name before
// a speech verb; the most recent mention wins.
func latestNPC(state *domain.GameState) string {
	if state == nil || len(state.ChatHistory) == 0 {
		return ""
	}
	history := state.ChatHistory
	start := len(history) - npcLookbackMessages
	if start < 0 {
		start = 0
	}
	for i := len(history) - 1; i >= start; i-- {
		matches := npcPattern.FindAllStringSubmatch(history[i].Content, -1)
		if len(matches) > 0 {
			return matches[len(matches)-1][1]
		}
	}
	return ""
}

// =============================================================================
// TEXT MATCHING HELPERS
// =============================================================================

// normalizeText lowercases, strips punctuation, and pads with spaces so
// phrase containment can match on word boundaries.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '\'':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	b.WriteByte(' ')
	return strings.Join(strings.Fields(b.String()), " ")
}

func containsPhrase(norm, phrase string) bool {
	return strings.Contains(" "+norm+" ", " "+phrase+" ")
}

func containsAnyWord(norm string, words []string) bool {
	for _, w := range words {
		if containsPhrase(norm, w) {
			return true
		}
	}
	return false
}

func matchPhrase(norm string, phrases []string) string {
	for _, p := range phrases {
		if containsPhrase(norm, p) {
			return p
		}
	}
	return ""
}

func onList(candidate string, list []string) bool {
	for _, item := range list {
		if candidate == item {
			return true
		}
	}
	return false
}

// dedupeKeepLast collapses duplicates keeping each value's final position.
func dedupeKeepLast(values []string) []string {
	last := make(map[string]int, len(values))
	for i, v := range values {
		last[v] = i
	}
	out := make([]string, 0, len(last))
	for i, v := range values {
		if last[v] == i {
			out = append(out, v)
		}
	}
	return out
}

// titleWords capitalizes each word for display ("magic missile" -> "Magic
// Missile").
func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// String renders a query for debug logs.
func (q Query) String() string {
	return fmt.Sprintf("%s(%q)", q.Kind, q.Text)
}
