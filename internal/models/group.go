package models

import "time"

// Group maps a named set of members to a list of role names. A member's
// permission set is the union of the roles of all groups it belongs to.
type Group struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Roles     []string  `gorm:"serializer:json" json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Group) TableName() string { return "groups" }
