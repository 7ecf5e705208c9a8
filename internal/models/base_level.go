package models

import "time"

// BaseLevel is one rung of the configuration hierarchy (e.g. environment,
// application). Sequence numbers are kept dense 0..N-1 by the registry and
// define parent -> child order everywhere hierarchy order matters.
type BaseLevel struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	SequenceNumber int       `gorm:"not null" json:"sequenceNumber"`
	Icon           string    `gorm:"size:100" json:"icon"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (BaseLevel) TableName() string { return "base_levels" }
