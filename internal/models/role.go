package models

import (
	"strings"
	"time"
)

// Role is a flat permission identifier following the dotted naming
// convention: "admin", "<resource>.<action>",
// "baseConfigurations.<level>.<action>" and
// "configurationModel.<level>.<model>.<action>". Roles are data, not code;
// permission decisions are set-membership checks against a member's
// resolved role set.
type Role struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Role) TableName() string { return "roles" }

// Well-known role resources and actions.
const (
	RoleAdmin = "admin"

	ActionView   = "view"
	ActionModify = "modify"

	ResourceConfiguration      = "configuration"
	ResourceConfigurationModel = "configurationModel"
	ResourceBaseConfigurations = "baseConfigurations"
)

// RoleName is the structured form of a dotted role identifier. Level and
// Model are optional; the zero values render the coarse two-part form.
type RoleName struct {
	Resource string
	Level    string
	Model    string
	Action   string
}

// String renders the canonical stored form of the role name.
func (r RoleName) String() string {
	parts := make([]string, 0, 4)
	parts = append(parts, r.Resource)
	if r.Level != "" {
		parts = append(parts, r.Level)
	}
	if r.Model != "" {
		parts = append(parts, r.Model)
	}
	parts = append(parts, r.Action)
	return strings.Join(parts, ".")
}

// ModelViewRole names the model-specific view override for (level, model).
func ModelViewRole(level, model string) string {
	return RoleName{Resource: ResourceConfigurationModel, Level: level, Model: model, Action: ActionView}.String()
}

// ModelModifyRole names the model-specific modify override for (level, model).
func ModelModifyRole(level, model string) string {
	return RoleName{Resource: ResourceConfigurationModel, Level: level, Model: model, Action: ActionModify}.String()
}

// LevelViewRole names the per-level view grant for a hierarchy level.
func LevelViewRole(level string) string {
	return RoleName{Resource: ResourceBaseConfigurations, Level: level, Action: ActionView}.String()
}

// LevelRolePrefix is the role name prefix a deleted hierarchy level cascades
// over. Only roles whose first dotted segment is the level name itself are
// removed; roles naming the level in a later segment are left untouched.
func LevelRolePrefix(level string) string {
	return level + "."
}
