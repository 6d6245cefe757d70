package domain

import "fmt"

// Choice-like structures from the source data are free-form JSON discriminated
// on option_type / option_set_type. They are parsed into the closed variants
// below at the repository edge; unknown discriminants fail validation instead
// of surfacing later as nil-map panics.

// Choice asks the reader to pick N options from a set.
type Choice struct {
	Desc   string     `json:"desc,omitempty"`
	Choose int        `json:"choose"`
	Type   string     `json:"type,omitempty"`
	From   *OptionSet `json:"from,omitempty"`
}

// OptionSet is the pool a Choice draws from, discriminated by OptionSetType.
type OptionSet struct {
	OptionSetType     string        `json:"option_set_type"`
	Options           []Option      `json:"options,omitempty"`
	EquipmentCategory *APIReference `json:"equipment_category,omitempty"`
	ResourceListURL   string        `json:"resource_list_url,omitempty"`
}

// Option set discriminants.
const (
	OptionSetOptionsArray      = "options_array"
	OptionSetEquipmentCategory = "equipment_category"
	OptionSetResourceList      = "resource_list"
)

// Option discriminants.
const (
	OptionReference         = "reference"
	OptionAction            = "action"
	OptionMultiple          = "multiple"
	OptionChoice            = "choice"
	OptionString            = "string"
	OptionIdeal             = "ideal"
	OptionCountedReference  = "counted_reference"
	OptionScorePrerequisite = "score_prerequisite"
	OptionAbilityBonus      = "ability_bonus"
	OptionBreath            = "breath"
	OptionDamage            = "damage"
)

// Option is one selectable element, discriminated by OptionType. Only the
// fields matching the discriminant are populated.
type Option struct {
	OptionType string `json:"option_type"`

	// reference, counted_reference
	Item  *APIReference `json:"item,omitempty"`
	Count int           `json:"count,omitempty"`

	// choice (nested)
	Choice *Choice `json:"choice,omitempty"`

	// multiple
	Items []Option `json:"items,omitempty"`

	// string, ideal
	String     string         `json:"string,omitempty"`
	Desc       string         `json:"desc,omitempty"`
	Alignments []APIReference `json:"alignments,omitempty"`

	// ability_bonus, score_prerequisite
	AbilityScore *APIReference `json:"ability_score,omitempty"`
	Bonus        int           `json:"bonus,omitempty"`
	MinimumScore int           `json:"minimum_score,omitempty"`

	// action
	ActionName string           `json:"action_name,omitempty"`
	ActionDC   *DifficultyClass `json:"dc,omitempty"`

	// breath, damage
	DamageType *APIReference `json:"damage_type,omitempty"`
	DamageDice string        `json:"damage_dice,omitempty"`
	Notes      string        `json:"notes,omitempty"`
}

// Validate checks the discriminant and the presence of its required fields.
func (o Option) Validate() error {
	switch o.OptionType {
	case OptionReference, OptionCountedReference:
		if o.Item == nil {
			return &ValidationError{Field: "item", Value: nil,
				Msg: fmt.Sprintf("option_type %q requires an item reference", o.OptionType)}
		}
	case OptionChoice:
		if o.Choice == nil {
			return &ValidationError{Field: "choice", Value: nil,
				Msg: "option_type \"choice\" requires a nested choice"}
		}
	case OptionMultiple:
		if len(o.Items) == 0 {
			return &ValidationError{Field: "items", Value: nil,
				Msg: "option_type \"multiple\" requires items"}
		}
	case OptionString, OptionIdeal, OptionAction, OptionScorePrerequisite,
		OptionAbilityBonus, OptionBreath, OptionDamage:
		// Free-text and stat variants carry optional fields only.
	case "":
		return &ValidationError{Field: "option_type", Value: "", Msg: "must not be empty"}
	default:
		return &ValidationError{Field: "option_type", Value: o.OptionType, Msg: "unknown discriminant"}
	}
	return nil
}
