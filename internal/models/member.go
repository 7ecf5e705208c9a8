package models

import "time"

// Auth types for members.
const (
	AuthTypeLocal = "local"
	AuthTypeLDAP  = "ldap"
)

// AdminUsername is the well-known local administrator account. It bypasses
// external identity verification and resolves to every known role.
const AdminUsername = "admin"

// Member is a user account. LDAP members carry no local password; technical
// users authenticate only via a non-expiring access token.
type Member struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Username      string     `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password      string     `gorm:"size:255" json:"-"` // bcrypt hash, empty for LDAP members
	Email         string     `gorm:"size:255" json:"email"`
	Groups        []string   `gorm:"serializer:json" json:"groups"`
	TechnicalUser bool       `gorm:"default:false" json:"technicalUser"`
	Type          string     `gorm:"size:20;default:local" json:"type"` // local, ldap
	NewUser       bool       `gorm:"default:false" json:"newUser"`
	LastLogin     *time.Time `json:"last_login"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Member) TableName() string { return "members" }
