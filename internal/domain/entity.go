// Package domain holds the pure value objects of the game-rule catalog and
// the campaign runtime: the 25 catalog entity kinds, content packs, chat
// messages, game-state snapshots, and the typed error kinds. Values in this
// package never hold database handles or live sessions, which is what lets
// repositories return them to callers with no lifetime constraints.
package domain

import (
	"fmt"
	"strings"
)

// =============================================================================
// BASE ENTITY AND REFERENCES
// =============================================================================

// APIReference is a by-value pointer to another catalog entity. References
// are stored inline as {index, name, url} triples, never as foreign keys, so
// a loaded row is complete without touching the database again.
type APIReference struct {
	Index string `json:"index"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

// BaseEntity carries the fields shared by every catalog row. Index is unique
// within a content pack; (Index, ContentPackID) is unique globally.
type BaseEntity struct {
	Index         string `json:"index"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	ContentPackID string `json:"content_pack_id,omitempty"`
}

func (b BaseEntity) GetIndex() string         { return b.Index }
func (b BaseEntity) GetName() string          { return b.Name }
func (b BaseEntity) GetURL() string           { return b.URL }
func (b BaseEntity) GetContentPackID() string { return b.ContentPackID }

// SetContentPackID stamps the owning pack after a row is decoded. The pack id
// is stored as a column, not inside the JSON document.
func (b *BaseEntity) SetContentPackID(id string) { b.ContentPackID = id }

// Validate checks the fields every catalog entity must carry.
func (b BaseEntity) Validate() error {
	if b.Index == "" {
		return &ValidationError{Field: "index", Value: b.Index, Msg: "must not be empty"}
	}
	if b.Name == "" {
		return &ValidationError{Field: "name", Value: b.Name, Msg: "must not be empty"}
	}
	if b.URL == "" {
		return &ValidationError{Field: "url", Value: b.URL, Msg: "must not be empty"}
	}
	return nil
}

// EmbeddingText is the default textual view used for vector indexing.
// Kinds with richer fields override this with a kind-specific format.
func (b BaseEntity) EmbeddingText() string {
	return b.Name
}

// Entity is the common surface of all 25 catalog kinds. Concrete kinds embed
// BaseEntity, so *Kind always satisfies Entity.
type Entity interface {
	GetIndex() string
	GetName() string
	GetURL() string
	GetContentPackID() string
	SetContentPackID(id string)
	Validate() error
	EmbeddingText() string
}

// joinDesc flattens a multi-paragraph description for embedding text.
func joinDesc(desc []string) string {
	return strings.Join(desc, " ")
}

// =============================================================================
// SHARED NESTED STRUCTURES (stored inside the JSON document column)
// =============================================================================

// Cost is a coin amount, e.g. {Quantity: 15, Unit: "gp"}.
type Cost struct {
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
}

// Damage pairs a dice expression with a damage type reference.
type Damage struct {
	DamageDice string        `json:"damage_dice,omitempty"`
	DamageType *APIReference `json:"damage_type,omitempty"`
}

// DifficultyClass describes a saving throw a spell or action forces.
type DifficultyClass struct {
	DCType      *APIReference `json:"dc_type,omitempty"`
	DCValue     int           `json:"dc_value,omitempty"`
	SuccessType string        `json:"dc_success,omitempty"`
}

// AreaOfEffect is a spell or breath template, e.g. 20-foot sphere.
type AreaOfEffect struct {
	Type string `json:"type"`
	Size int    `json:"size"`
}

// Usage limits how often an ability may be used.
type Usage struct {
	Type      string   `json:"type,omitempty"`
	Times     int      `json:"times,omitempty"`
	RestTypes []string `json:"rest_types,omitempty"`
	Dice      string   `json:"dice,omitempty"`
	MinValue  int      `json:"min_value,omitempty"`
}

// Speed holds a monster's movement modes as printed, e.g. Walk "30 ft.".
type Speed struct {
	Walk   string `json:"walk,omitempty"`
	Swim   string `json:"swim,omitempty"`
	Fly    string `json:"fly,omitempty"`
	Burrow string `json:"burrow,omitempty"`
	Climb  string `json:"climb,omitempty"`
	Hover  bool   `json:"hover,omitempty"`
}

// Senses holds a monster's sensory ranges as printed.
type Senses struct {
	PassivePerception int    `json:"passive_perception,omitempty"`
	Blindsight        string `json:"blindsight,omitempty"`
	Darkvision        string `json:"darkvision,omitempty"`
	Tremorsense       string `json:"tremorsense,omitempty"`
	Truesight         string `json:"truesight,omitempty"`
}

// ArmorClassEntry is one line of a monster's AC block.
type ArmorClassEntry struct {
	Type      string         `json:"type,omitempty"`
	Value     int            `json:"value"`
	Armor     []APIReference `json:"armor,omitempty"`
	Spell     *APIReference  `json:"spell,omitempty"`
	Condition *APIReference  `json:"condition,omitempty"`
	Desc      string         `json:"desc,omitempty"`
}

// ProficiencyBonus pairs a proficiency reference with its bonus value.
type ProficiencyBonus struct {
	Value       int           `json:"value"`
	Proficiency *APIReference `json:"proficiency,omitempty"`
}

// AbilityBonus is a racial ability score increase.
type AbilityBonus struct {
	AbilityScore *APIReference `json:"ability_score,omitempty"`
	Bonus        int           `json:"bonus"`
}

// MonsterAction is an attack or special action in a stat block.
type MonsterAction struct {
	Name        string           `json:"name"`
	Desc        string           `json:"desc,omitempty"`
	AttackBonus int              `json:"attack_bonus,omitempty"`
	Damage      []Damage         `json:"damage,omitempty"`
	DC          *DifficultyClass `json:"dc,omitempty"`
	Usage       *Usage           `json:"usage,omitempty"`
}

// SpecialAbility is a passive trait in a monster stat block.
type SpecialAbility struct {
	Name  string           `json:"name"`
	Desc  string           `json:"desc,omitempty"`
	Usage *Usage           `json:"usage,omitempty"`
	DC    *DifficultyClass `json:"dc,omitempty"`
}

// Prerequisite gates a feat or feature behind a minimum ability score.
type Prerequisite struct {
	AbilityScore *APIReference `json:"ability_score,omitempty"`
	MinimumScore int           `json:"minimum_score,omitempty"`
}

// StartingEquipmentItem is a fixed (non-choice) starting equipment grant.
type StartingEquipmentItem struct {
	Equipment *APIReference `json:"equipment,omitempty"`
	Quantity  int           `json:"quantity"`
}

// SpellcastingInfo is the class-level spellcasting block.
type SpellcastingInfo struct {
	Level               int           `json:"level,omitempty"`
	SpellcastingAbility *APIReference `json:"spellcasting_ability,omitempty"`
	Info                []NamedDesc   `json:"info,omitempty"`
}

// NamedDesc is a titled description block.
type NamedDesc struct {
	Name string   `json:"name"`
	Desc []string `json:"desc,omitempty"`
}

// MultiClassing gives the prerequisites and grants for multiclassing.
type MultiClassing struct {
	Prerequisites      []Prerequisite `json:"prerequisites,omitempty"`
	Proficiencies      []APIReference `json:"proficiencies,omitempty"`
	ProficiencyChoices []Choice       `json:"proficiency_choices,omitempty"`
}

// LevelSpellcasting is the per-level slot table.
type LevelSpellcasting struct {
	CantripsKnown    int `json:"cantrips_known,omitempty"`
	SpellsKnown      int `json:"spells_known,omitempty"`
	SpellSlotsLevel1 int `json:"spell_slots_level_1,omitempty"`
	SpellSlotsLevel2 int `json:"spell_slots_level_2,omitempty"`
	SpellSlotsLevel3 int `json:"spell_slots_level_3,omitempty"`
	SpellSlotsLevel4 int `json:"spell_slots_level_4,omitempty"`
	SpellSlotsLevel5 int `json:"spell_slots_level_5,omitempty"`
	SpellSlotsLevel6 int `json:"spell_slots_level_6,omitempty"`
	SpellSlotsLevel7 int `json:"spell_slots_level_7,omitempty"`
	SpellSlotsLevel8 int `json:"spell_slots_level_8,omitempty"`
	SpellSlotsLevel9 int `json:"spell_slots_level_9,omitempty"`
}

// =============================================================================
// MECHANICS FAMILY
// =============================================================================

// AbilityScore is one of the six core ability scores.
type AbilityScore struct {
	BaseEntity
	FullName string         `json:"full_name,omitempty"`
	Desc     []string       `json:"desc,omitempty"`
	Skills   []APIReference `json:"skills,omitempty"`
}

func (a AbilityScore) EmbeddingText() string {
	return fmt.Sprintf("Ability Score: %s (%s) | %s", a.Name, a.FullName, joinDesc(a.Desc))
}

// Alignment is one of the nine alignments.
type Alignment struct {
	BaseEntity
	Abbreviation string `json:"abbreviation,omitempty"`
	Desc         string `json:"desc,omitempty"`
}

func (a Alignment) EmbeddingText() string {
	return fmt.Sprintf("Alignment: %s | %s", a.Name, a.Desc)
}

// Condition is a status effect such as Blinded or Prone.
type Condition struct {
	BaseEntity
	Desc []string `json:"desc,omitempty"`
}

func (c Condition) EmbeddingText() string {
	return fmt.Sprintf("Condition: %s | %s", c.Name, joinDesc(c.Desc))
}

// DamageType is a damage category such as Fire or Slashing.
type DamageType struct {
	BaseEntity
	Desc []string `json:"desc,omitempty"`
}

func (d DamageType) EmbeddingText() string {
	return fmt.Sprintf("Damage Type: %s | %s", d.Name, joinDesc(d.Desc))
}

// Language is a spoken or written language.
type Language struct {
	BaseEntity
	Type            string   `json:"type,omitempty"`
	TypicalSpeakers []string `json:"typical_speakers,omitempty"`
	Script          string   `json:"script,omitempty"`
	Desc            string   `json:"desc,omitempty"`
}

func (l Language) EmbeddingText() string {
	return fmt.Sprintf("Language: %s | Type: %s | Speakers: %s",
		l.Name, l.Type, strings.Join(l.TypicalSpeakers, ", "))
}

// Proficiency is a trainable competence (armor, weapon, tool, save, skill).
type Proficiency struct {
	BaseEntity
	Type      string         `json:"type,omitempty"`
	Classes   []APIReference `json:"classes,omitempty"`
	Races     []APIReference `json:"races,omitempty"`
	Reference *APIReference  `json:"reference,omitempty"`
}

func (p Proficiency) EmbeddingText() string {
	return fmt.Sprintf("Proficiency: %s | Type: %s", p.Name, p.Type)
}

// Skill is one of the 18 canonical skills.
type Skill struct {
	BaseEntity
	Desc         []string      `json:"desc,omitempty"`
	AbilityScore *APIReference `json:"ability_score,omitempty"`
}

func (s Skill) EmbeddingText() string {
	ability := ""
	if s.AbilityScore != nil {
		ability = s.AbilityScore.Name
	}
	return fmt.Sprintf("Skill: %s | Ability: %s | %s", s.Name, ability, joinDesc(s.Desc))
}

// =============================================================================
// CHARACTER OPTIONS FAMILY
// =============================================================================

// Background is a character origin such as Acolyte.
type Background struct {
	BaseEntity
	StartingProficiencies    []APIReference          `json:"starting_proficiencies,omitempty"`
	LanguageOptions          *Choice                 `json:"language_options,omitempty"`
	StartingEquipment        []StartingEquipmentItem `json:"starting_equipment,omitempty"`
	StartingEquipmentOptions []Choice                `json:"starting_equipment_options,omitempty"`
	Feature                  *NamedDesc              `json:"feature,omitempty"`
	PersonalityTraits        *Choice                 `json:"personality_traits,omitempty"`
	Ideals                   *Choice                 `json:"ideals,omitempty"`
	Bonds                    *Choice                 `json:"bonds,omitempty"`
	Flaws                    *Choice                 `json:"flaws,omitempty"`
}

func (b Background) EmbeddingText() string {
	feature := ""
	if b.Feature != nil {
		feature = b.Feature.Name
	}
	return fmt.Sprintf("Background: %s | Feature: %s", b.Name, feature)
}

// Class is a character class such as Wizard.
type Class struct {
	BaseEntity
	HitDie                   int                     `json:"hit_die,omitempty"`
	ProficiencyChoices       []Choice                `json:"proficiency_choices,omitempty"`
	Proficiencies            []APIReference          `json:"proficiencies,omitempty"`
	SavingThrows             []APIReference          `json:"saving_throws,omitempty"`
	StartingEquipment        []StartingEquipmentItem `json:"starting_equipment,omitempty"`
	StartingEquipmentOptions []Choice                `json:"starting_equipment_options,omitempty"`
	ClassLevelsURL           string                  `json:"class_levels,omitempty"`
	MultiClassing            *MultiClassing          `json:"multi_classing,omitempty"`
	Subclasses               []APIReference          `json:"subclasses,omitempty"`
	Spellcasting             *SpellcastingInfo       `json:"spellcasting,omitempty"`
	SpellsURL                string                  `json:"spells,omitempty"`
}

// IsSpellcaster reports whether the class has a spellcasting block.
func (c Class) IsSpellcaster() bool { return c.Spellcasting != nil }

func (c Class) EmbeddingText() string {
	saves := make([]string, 0, len(c.SavingThrows))
	for _, st := range c.SavingThrows {
		saves = append(saves, st.Name)
	}
	caster := "no"
	if c.IsSpellcaster() {
		caster = "yes"
	}
	return fmt.Sprintf("Class: %s | Hit Die: d%d | Saves: %s | Spellcaster: %s",
		c.Name, c.HitDie, strings.Join(saves, ", "), caster)
}

// Feat is an optional character feature such as Grappler.
type Feat struct {
	BaseEntity
	Desc          []string       `json:"desc,omitempty"`
	Prerequisites []Prerequisite `json:"prerequisites,omitempty"`
}

func (f Feat) EmbeddingText() string {
	return fmt.Sprintf("Feat: %s | %s", f.Name, joinDesc(f.Desc))
}

// Race is a playable race such as Elf.
type Race struct {
	BaseEntity
	Speed                      int            `json:"speed,omitempty"`
	AbilityBonuses             []AbilityBonus `json:"ability_bonuses,omitempty"`
	AbilityBonusOptions        *Choice        `json:"ability_bonus_options,omitempty"`
	Alignment                  string         `json:"alignment,omitempty"`
	Age                        string         `json:"age,omitempty"`
	Size                       string         `json:"size,omitempty"`
	SizeDescription            string         `json:"size_description,omitempty"`
	StartingProficiencies      []APIReference `json:"starting_proficiencies,omitempty"`
	StartingProficiencyOptions *Choice        `json:"starting_proficiency_options,omitempty"`
	Languages                  []APIReference `json:"languages,omitempty"`
	LanguageOptions            *Choice        `json:"language_options,omitempty"`
	LanguageDesc               string         `json:"language_desc,omitempty"`
	Traits                     []APIReference `json:"traits,omitempty"`
	Subraces                   []APIReference `json:"subraces,omitempty"`
}

func (r Race) EmbeddingText() string {
	return fmt.Sprintf("Race: %s | Size: %s | Speed: %d | %s", r.Name, r.Size, r.Speed, r.Age)
}

// Subclass is a class specialization such as School of Evocation.
type Subclass struct {
	BaseEntity
	ClassRef          *APIReference   `json:"class,omitempty"`
	SubclassFlavor    string          `json:"subclass_flavor,omitempty"`
	Desc              []string        `json:"desc,omitempty"`
	SubclassLevelsURL string          `json:"subclass_levels,omitempty"`
	Spells            []SubclassSpell `json:"spells,omitempty"`
}

// SubclassSpell binds a spell grant to its level prerequisite.
type SubclassSpell struct {
	Prerequisites []APIReference `json:"prerequisites,omitempty"`
	Spell         *APIReference  `json:"spell,omitempty"`
}

func (s Subclass) EmbeddingText() string {
	class := ""
	if s.ClassRef != nil {
		class = s.ClassRef.Name
	}
	return fmt.Sprintf("Subclass: %s | Class: %s | %s", s.Name, class, joinDesc(s.Desc))
}

// Subrace is a race specialization such as High Elf.
type Subrace struct {
	BaseEntity
	Race                  *APIReference  `json:"race,omitempty"`
	Desc                  string         `json:"desc,omitempty"`
	AbilityBonuses        []AbilityBonus `json:"ability_bonuses,omitempty"`
	StartingProficiencies []APIReference `json:"starting_proficiencies,omitempty"`
	Languages             []APIReference `json:"languages,omitempty"`
	LanguageOptions       *Choice        `json:"language_options,omitempty"`
	RacialTraits          []APIReference `json:"racial_traits,omitempty"`
}

func (s Subrace) EmbeddingText() string {
	race := ""
	if s.Race != nil {
		race = s.Race.Name
	}
	return fmt.Sprintf("Subrace: %s | Race: %s | %s", s.Name, race, s.Desc)
}

// Trait is a racial trait such as Darkvision.
type Trait struct {
	BaseEntity
	Desc               []string       `json:"desc,omitempty"`
	Races              []APIReference `json:"races,omitempty"`
	Subraces           []APIReference `json:"subraces,omitempty"`
	Proficiencies      []APIReference `json:"proficiencies,omitempty"`
	ProficiencyChoices *Choice        `json:"proficiency_choices,omitempty"`
	LanguageOptions    *Choice        `json:"language_options,omitempty"`
	TraitSpecific      *Choice        `json:"trait_specific,omitempty"`
}

func (t Trait) EmbeddingText() string {
	return fmt.Sprintf("Trait: %s | %s", t.Name, joinDesc(t.Desc))
}

// =============================================================================
// PROGRESSION FAMILY
// =============================================================================

// Feature is a class or subclass feature gained at a level.
type Feature struct {
	BaseEntity
	Level           int            `json:"level,omitempty"`
	ClassRef        *APIReference  `json:"class,omitempty"`
	Subclass        *APIReference  `json:"subclass,omitempty"`
	Desc            []string       `json:"desc,omitempty"`
	Parent          *APIReference  `json:"parent,omitempty"`
	Prerequisites   []Prerequisite `json:"prerequisites,omitempty"`
	FeatureSpecific *Choice        `json:"feature_specific,omitempty"`
}

func (f Feature) EmbeddingText() string {
	class := ""
	if f.ClassRef != nil {
		class = f.ClassRef.Name
	}
	return fmt.Sprintf("Feature: %s | Class: %s | Level %d | %s",
		f.Name, class, f.Level, joinDesc(f.Desc))
}

// Level is one row of a class progression table. Level rows have no
// free-standing name in the source data, so Name mirrors the index.
type Level struct {
	BaseEntity
	Level               int                `json:"level"`
	AbilityScoreBonuses int                `json:"ability_score_bonuses,omitempty"`
	ProfBonus           int                `json:"prof_bonus,omitempty"`
	Features            []APIReference     `json:"features,omitempty"`
	Spellcasting        *LevelSpellcasting `json:"spellcasting,omitempty"`
	ClassSpecific       map[string]any     `json:"class_specific,omitempty"`
	ClassRef            *APIReference      `json:"class,omitempty"`
	Subclass            *APIReference      `json:"subclass,omitempty"`
}

func (l Level) Validate() error {
	if err := l.BaseEntity.Validate(); err != nil {
		return err
	}
	if l.Level < 1 || l.Level > 20 {
		return &ValidationError{Field: "level", Value: l.Level, Msg: "must be between 1 and 20"}
	}
	return nil
}

func (l Level) EmbeddingText() string {
	class := ""
	if l.ClassRef != nil {
		class = l.ClassRef.Name
	}
	return fmt.Sprintf("Level: %s level %d | Proficiency Bonus: +%d | Features: %d",
		class, l.Level, l.ProfBonus, len(l.Features))
}

// =============================================================================
// EQUIPMENT FAMILY
// =============================================================================

// Equipment is a mundane item: weapon, armor, gear, tool, or mount.
type Equipment struct {
	BaseEntity
	EquipmentCategory *APIReference `json:"equipment_category,omitempty"`
	Cost              *Cost         `json:"cost,omitempty"`
	Weight            float64       `json:"weight,omitempty"`
	Desc              []string      `json:"desc,omitempty"`

	// Weapon fields.
	WeaponCategory  string         `json:"weapon_category,omitempty"`
	WeaponRange     string         `json:"weapon_range,omitempty"`
	CategoryRange   string         `json:"category_range,omitempty"`
	Damage          *Damage        `json:"damage,omitempty"`
	TwoHandedDamage *Damage        `json:"two_handed_damage,omitempty"`
	Range           *WeaponReach   `json:"range,omitempty"`
	ThrowRange      *WeaponReach   `json:"throw_range,omitempty"`
	Properties      []APIReference `json:"properties,omitempty"`

	// Armor fields.
	ArmorCategory       string      `json:"armor_category,omitempty"`
	ArmorClass          *ArmorClass `json:"armor_class,omitempty"`
	StrMinimum          int         `json:"str_minimum,omitempty"`
	StealthDisadvantage bool        `json:"stealth_disadvantage,omitempty"`

	// Gear fields.
	GearCategory *APIReference           `json:"gear_category,omitempty"`
	Quantity     int                     `json:"quantity,omitempty"`
	Contents     []StartingEquipmentItem `json:"contents,omitempty"`

	// Tool and vehicle fields.
	ToolCategory    string `json:"tool_category,omitempty"`
	VehicleCategory string `json:"vehicle_category,omitempty"`
	Speed           *Cost  `json:"speed,omitempty"`
	Capacity        string `json:"capacity,omitempty"`
}

// WeaponReach is a weapon's normal/long range in feet.
type WeaponReach struct {
	Normal int `json:"normal,omitempty"`
	Long   int `json:"long,omitempty"`
}

// ArmorClass is the AC granted by a piece of armor.
type ArmorClass struct {
	Base     int  `json:"base"`
	DexBonus bool `json:"dex_bonus,omitempty"`
	MaxBonus int  `json:"max_bonus,omitempty"`
}

// IsWeapon reports whether the item carries weapon stats.
func (e Equipment) IsWeapon() bool { return e.WeaponCategory != "" }

// IsArmor reports whether the item carries armor stats.
func (e Equipment) IsArmor() bool { return e.ArmorCategory != "" }

func (e Equipment) EmbeddingText() string {
	category := ""
	if e.EquipmentCategory != nil {
		category = e.EquipmentCategory.Name
	}
	cost := ""
	if e.Cost != nil {
		cost = fmt.Sprintf("%d %s", e.Cost.Quantity, e.Cost.Unit)
	}
	return fmt.Sprintf("Equipment: %s | Category: %s | Cost: %s | %s",
		e.Name, category, cost, joinDesc(e.Desc))
}

// EquipmentCategory groups equipment, e.g. Simple Melee Weapons.
type EquipmentCategory struct {
	BaseEntity
	Equipment []APIReference `json:"equipment,omitempty"`
}

func (e EquipmentCategory) EmbeddingText() string {
	return fmt.Sprintf("Equipment Category: %s | %d items", e.Name, len(e.Equipment))
}

// MagicItem is an enchanted item such as a Bag of Holding.
type MagicItem struct {
	BaseEntity
	EquipmentCategory *APIReference  `json:"equipment_category,omitempty"`
	Rarity            *ItemRarity    `json:"rarity,omitempty"`
	Variants          []APIReference `json:"variants,omitempty"`
	Variant           bool           `json:"variant,omitempty"`
	Desc              []string       `json:"desc,omitempty"`
}

// ItemRarity wraps the rarity name of a magic item.
type ItemRarity struct {
	Name string `json:"name"`
}

func (m MagicItem) EmbeddingText() string {
	rarity := ""
	if m.Rarity != nil {
		rarity = m.Rarity.Name
	}
	return fmt.Sprintf("Magic Item: %s | Rarity: %s | %s", m.Name, rarity, joinDesc(m.Desc))
}

// MagicSchool is a school of magic such as Evocation.
type MagicSchool struct {
	BaseEntity
	Desc string `json:"desc,omitempty"`
}

func (m MagicSchool) EmbeddingText() string {
	return fmt.Sprintf("Magic School: %s | %s", m.Name, m.Desc)
}

// WeaponProperty is a weapon tag such as Finesse or Versatile.
type WeaponProperty struct {
	BaseEntity
	Desc []string `json:"desc,omitempty"`
}

func (w WeaponProperty) EmbeddingText() string {
	return fmt.Sprintf("Weapon Property: %s | %s", w.Name, joinDesc(w.Desc))
}

// =============================================================================
// SPELLS, MONSTERS, RULES
// =============================================================================

// Spell is a castable spell with full rules text.
type Spell struct {
	BaseEntity
	Desc            []string          `json:"desc,omitempty"`
	HigherLevel     []string          `json:"higher_level,omitempty"`
	SpellRange      string            `json:"range,omitempty"`
	Components      []string          `json:"components,omitempty"`
	Material        string            `json:"material,omitempty"`
	Ritual          bool              `json:"ritual,omitempty"`
	Duration        string            `json:"duration,omitempty"`
	Concentration   bool              `json:"concentration,omitempty"`
	CastingTime     string            `json:"casting_time,omitempty"`
	Level           int               `json:"level"`
	AttackType      string            `json:"attack_type,omitempty"`
	Damage          *SpellDamage      `json:"damage,omitempty"`
	DC              *DifficultyClass  `json:"dc,omitempty"`
	AreaOfEffect    *AreaOfEffect     `json:"area_of_effect,omitempty"`
	School          *APIReference     `json:"school,omitempty"`
	Classes         []APIReference    `json:"classes,omitempty"`
	Subclasses      []APIReference    `json:"subclasses,omitempty"`
	HealAtSlotLevel map[string]string `json:"heal_at_slot_level,omitempty"`
}

// SpellDamage maps damage to slot or character level.
type SpellDamage struct {
	DamageType             *APIReference     `json:"damage_type,omitempty"`
	DamageAtSlotLevel      map[string]string `json:"damage_at_slot_level,omitempty"`
	DamageAtCharacterLevel map[string]string `json:"damage_at_character_level,omitempty"`
}

func (s Spell) Validate() error {
	if err := s.BaseEntity.Validate(); err != nil {
		return err
	}
	if s.Level < 0 || s.Level > 9 {
		return &ValidationError{Field: "level", Value: s.Level, Msg: "must be between 0 and 9"}
	}
	return nil
}

func (s Spell) EmbeddingText() string {
	school := ""
	if s.School != nil {
		school = s.School.Name
	}
	return fmt.Sprintf("Spell: %s | Level %d | School: %s | %s",
		s.Name, s.Level, school, joinDesc(s.Desc))
}

// Monster is a full stat block.
type Monster struct {
	BaseEntity
	Size                  string             `json:"size,omitempty"`
	Type                  string             `json:"type,omitempty"`
	Subtype               string             `json:"subtype,omitempty"`
	Alignment             string             `json:"alignment,omitempty"`
	ArmorClass            []ArmorClassEntry  `json:"armor_class,omitempty"`
	HitPoints             int                `json:"hit_points,omitempty"`
	HitDice               string             `json:"hit_dice,omitempty"`
	HitPointsRoll         string             `json:"hit_points_roll,omitempty"`
	Speed                 *Speed             `json:"speed,omitempty"`
	Strength              int                `json:"strength,omitempty"`
	Dexterity             int                `json:"dexterity,omitempty"`
	Constitution          int                `json:"constitution,omitempty"`
	Intelligence          int                `json:"intelligence,omitempty"`
	Wisdom                int                `json:"wisdom,omitempty"`
	Charisma              int                `json:"charisma,omitempty"`
	Proficiencies         []ProficiencyBonus `json:"proficiencies,omitempty"`
	DamageVulnerabilities []string           `json:"damage_vulnerabilities,omitempty"`
	DamageResistances     []string           `json:"damage_resistances,omitempty"`
	DamageImmunities      []string           `json:"damage_immunities,omitempty"`
	ConditionImmunities   []APIReference     `json:"condition_immunities,omitempty"`
	Senses                *Senses            `json:"senses,omitempty"`
	Languages             string             `json:"languages,omitempty"`
	ChallengeRating       float64            `json:"challenge_rating"`
	ProficiencyBonus      int                `json:"proficiency_bonus,omitempty"`
	XP                    int                `json:"xp,omitempty"`
	SpecialAbilities      []SpecialAbility   `json:"special_abilities,omitempty"`
	Actions               []MonsterAction    `json:"actions,omitempty"`
	LegendaryActions      []MonsterAction    `json:"legendary_actions,omitempty"`
	Reactions             []MonsterAction    `json:"reactions,omitempty"`
	Forms                 []APIReference     `json:"forms,omitempty"`
}

func (m Monster) Validate() error {
	if err := m.BaseEntity.Validate(); err != nil {
		return err
	}
	if m.ChallengeRating < 0 {
		return &ValidationError{Field: "challenge_rating", Value: m.ChallengeRating, Msg: "must not be negative"}
	}
	if m.HitPoints < 0 {
		return &ValidationError{Field: "hit_points", Value: m.HitPoints, Msg: "must not be negative"}
	}
	return nil
}

// FormatCR renders fractional challenge ratings the way stat blocks print
// them (1/8, 1/4, 1/2) and whole ratings as integers.
func FormatCR(cr float64) string {
	switch cr {
	case 0.125:
		return "1/8"
	case 0.25:
		return "1/4"
	case 0.5:
		return "1/2"
	default:
		return strings.TrimSuffix(fmt.Sprintf("%.2f", cr), ".00")
	}
}

func (m Monster) EmbeddingText() string {
	return fmt.Sprintf("Monster: %s | Type: %s | CR %s | HP %d | AC %s | %s",
		m.Name, m.Type, FormatCR(m.ChallengeRating), m.HitPoints,
		m.formatAC(), m.Alignment)
}

func (m Monster) formatAC() string {
	if len(m.ArmorClass) == 0 {
		return "?"
	}
	return fmt.Sprintf("%d", m.ArmorClass[0].Value)
}

// Rule is a top-level rules chapter, e.g. Combat.
type Rule struct {
	BaseEntity
	Desc        string         `json:"desc,omitempty"`
	Subsections []APIReference `json:"subsections,omitempty"`
}

func (r Rule) EmbeddingText() string {
	return fmt.Sprintf("Rule: %s | %s", r.Name, r.Desc)
}

// RuleSection is a rules subsection with full explanatory text.
type RuleSection struct {
	BaseEntity
	Desc string `json:"desc,omitempty"`
}

func (r RuleSection) EmbeddingText() string {
	return fmt.Sprintf("Rule Section: %s | %s", r.Name, r.Desc)
}
