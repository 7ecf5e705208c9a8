package models

import "time"

// Promotion is one edge of the promotion graph: instances whose model at
// Base is FromModel may be promoted towards any of ToModels at that level.
type Promotion struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Base      string    `gorm:"size:100;not null;index" json:"base"`
	FromModel string    `gorm:"size:200;not null" json:"fromModel"`
	ToModels  []string  `gorm:"serializer:json" json:"toModels"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Promotion) TableName() string { return "promotions" }

// Targets reports whether model is one of the edge's promotion targets.
func (p *Promotion) Targets(model string) bool {
	for _, m := range p.ToModels {
		if m == model {
			return true
		}
	}
	return false
}
