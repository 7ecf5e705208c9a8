package models

import "time"

// ConfigurationModel is a named schema bound to one hierarchy level. It
// governs which configuration instances may be created under it: validation
// rules, an optional restriction list for child models, and per-model write
// permission overrides resolved through the role registry.
//
// Identity is (Base, Name) while Deleted is false; soft-deleted models with
// the same pair are revived by re-creation.
type ConfigurationModel struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Base         string       `gorm:"size:100;not null;index:idx_models_base_name" json:"base"`
	Name         string       `gorm:"size:200;not null;index:idx_models_base_name" json:"name"`
	Deleted      bool         `gorm:"default:false;index" json:"deleted"`
	Rules        []Rule       `gorm:"serializer:json" json:"rules"`
	Restrictions []string     `gorm:"serializer:json" json:"restrictions"`
	Options      ModelOptions `gorm:"serializer:json" json:"options"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`

	// DefaultValues is computed per read from the constant variable
	// resolver; never persisted.
	DefaultValues []Variable `gorm:"-" json:"defaultValues,omitempty"`
}

func (ConfigurationModel) TableName() string { return "configuration_models" }

// PermitsChild reports whether this model allows the given child model name
// under its restriction list. Models without restrictions permit everything.
func (m *ConfigurationModel) PermitsChild(name string) bool {
	if !m.Options.HasRestrictions {
		return true
	}
	for _, r := range m.Restrictions {
		if r == name {
			return true
		}
	}
	return false
}
