package models

import "time"

// ConstantVariableSet is one dated batch of constant variable overrides
// tagged with a set of (level, model) bindings. The resolver merges sets
// across levels, most specific and most recent winning. The auto-increment
// ID doubles as the stable ascending sequence the merge relies on.
type ConstantVariableSet struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CreatedBy     uint       `json:"createdBy"`
	EffectiveDate time.Time  `gorm:"index" json:"effectiveDate"`
	Variables     []Variable `gorm:"serializer:json" json:"variables"`
	Levels        LevelMap   `gorm:"serializer:json" json:"levels"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (ConstantVariableSet) TableName() string { return "constant_variables" }
