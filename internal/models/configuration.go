package models

import "time"

// ConfigurationInstance is one versioned set of variable values bound to a
// path through the hierarchy. Version counts instances per distinct level
// combination, not globally. Instances are immutable once created except for
// the Promoted and EffectiveDate transitions.
type ConfigurationInstance struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Version       int        `gorm:"not null" json:"version"`
	Promoted      bool       `gorm:"default:false;index" json:"promoted"`
	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`
	Deleted       bool       `gorm:"default:false;index" json:"deleted"`
	CreatedBy     uint       `json:"createdBy"`
	Variables     []Variable `gorm:"serializer:json" json:"variables"`
	Levels        LevelMap   `gorm:"serializer:json" json:"levels"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (ConfigurationInstance) TableName() string { return "configurations" }

// MatchesLevels reports whether the instance carries every (level, model)
// pair of want. Instances populating additional levels still match.
func (c *ConfigurationInstance) MatchesLevels(want LevelMap) bool {
	for level, model := range want {
		if c.Levels[level] != model {
			return false
		}
	}
	return true
}
