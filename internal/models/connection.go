package models

import "time"

// Connection systems.
const (
	SystemLDAP  = "LDAP"
	SystemVault = "Vault"
)

// Connection configures one external collaborator system. Exactly one row
// exists per system; updates use partial semantics (only supplied fields
// change). Credential fields are ciphertext at rest.
type Connection struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	System  string `gorm:"uniqueIndex;size:20;not null" json:"system"` // LDAP, Vault
	Enabled bool   `gorm:"default:false" json:"enabled"`
	URL     string `gorm:"size:500" json:"url"`

	// LDAP
	BindDN          string `gorm:"size:500" json:"bindDN,omitempty"`
	BindCredentials string `gorm:"size:1000" json:"bindCredentials,omitempty"` // ciphertext
	SearchBase      string `gorm:"size:500" json:"searchBase,omitempty"`
	SearchFilter    string `gorm:"size:500" json:"searchFilter,omitempty"`

	// Vault
	GlobalToken    string       `gorm:"size:1000" json:"globalToken,omitempty"` // ciphertext
	UseGlobalToken bool         `gorm:"default:false" json:"useGlobalToken"`
	Tokens         []VaultToken `gorm:"serializer:json" json:"tokens,omitempty"` // ciphertext values

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Connection) TableName() string { return "connections" }
