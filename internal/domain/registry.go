package domain

// Kind names double as table names in the content store and as file stems in
// the ingestion input directory. The slice order is the canonical iteration
// order for the indexing and verification jobs.
const (
	KindAbilityScores       = "ability_scores"
	KindAlignments          = "alignments"
	KindBackgrounds         = "backgrounds"
	KindClasses             = "classes"
	KindConditions          = "conditions"
	KindDamageTypes         = "damage_types"
	KindEquipment           = "equipment"
	KindEquipmentCategories = "equipment_categories"
	KindFeats               = "feats"
	KindFeatures            = "features"
	KindLanguages           = "languages"
	KindLevels              = "levels"
	KindMagicItems          = "magic_items"
	KindMagicSchools        = "magic_schools"
	KindMonsters            = "monsters"
	KindProficiencies       = "proficiencies"
	KindRaces               = "races"
	KindRules               = "rules"
	KindRuleSections        = "rule_sections"
	KindSkills              = "skills"
	KindSpells              = "spells"
	KindSubclasses          = "subclasses"
	KindSubraces            = "subraces"
	KindTraits              = "traits"
	KindWeaponProperties    = "weapon_properties"
)

// KindInfo describes one catalog kind: its human label and a factory for the
// concrete entity type. New returns a pointer so the decoded value satisfies
// Entity.
type KindInfo struct {
	Name  string
	Label string
	New   func() Entity
}

// Kinds enumerates all 25 catalog kinds in canonical order.
var Kinds = []KindInfo{
	{KindAbilityScores, "Ability Score", func() Entity { return &AbilityScore{} }},
	{KindAlignments, "Alignment", func() Entity { return &Alignment{} }},
	{KindBackgrounds, "Background", func() Entity { return &Background{} }},
	{KindClasses, "Class", func() Entity { return &Class{} }},
	{KindConditions, "Condition", func() Entity { return &Condition{} }},
	{KindDamageTypes, "Damage Type", func() Entity { return &DamageType{} }},
	{KindEquipment, "Equipment", func() Entity { return &Equipment{} }},
	{KindEquipmentCategories, "Equipment Category", func() Entity { return &EquipmentCategory{} }},
	{KindFeats, "Feat", func() Entity { return &Feat{} }},
	{KindFeatures, "Feature", func() Entity { return &Feature{} }},
	{KindLanguages, "Language", func() Entity { return &Language{} }},
	{KindLevels, "Level", func() Entity { return &Level{} }},
	{KindMagicItems, "Magic Item", func() Entity { return &MagicItem{} }},
	{KindMagicSchools, "Magic School", func() Entity { return &MagicSchool{} }},
	{KindMonsters, "Monster", func() Entity { return &Monster{} }},
	{KindProficiencies, "Proficiency", func() Entity { return &Proficiency{} }},
	{KindRaces, "Race", func() Entity { return &Race{} }},
	{KindRules, "Rule", func() Entity { return &Rule{} }},
	{KindRuleSections, "Rule Section", func() Entity { return &RuleSection{} }},
	{KindSkills, "Skill", func() Entity { return &Skill{} }},
	{KindSpells, "Spell", func() Entity { return &Spell{} }},
	{KindSubclasses, "Subclass", func() Entity { return &Subclass{} }},
	{KindSubraces, "Subrace", func() Entity { return &Subrace{} }},
	{KindTraits, "Trait", func() Entity { return &Trait{} }},
	{KindWeaponProperties, "Weapon Property", func() Entity { return &WeaponProperty{} }},
}

// kindsByName indexes Kinds for O(1) lookup.
var kindsByName = func() map[string]KindInfo {
	m := make(map[string]KindInfo, len(Kinds))
	for _, k := range Kinds {
		m[k.Name] = k
	}
	return m
}()

// KindByName returns the kind descriptor for a table/kind name.
func KindByName(name string) (KindInfo, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// IsKind reports whether name is one of the 25 catalog kinds. This backs the
// table-name whitelist: dynamic SQL must never interpolate a name that fails
// this check.
func IsKind(name string) bool {
	_, ok := kindsByName[name]
	return ok
}
