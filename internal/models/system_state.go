package models

import "time"

// SystemState is the single bootstrap row. EncryptionCheck holds the
// ciphertext of a known marker written on first secret initialization; later
// initializations must decrypt it with the supplied key before the key is
// trusted.
type SystemState struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Booted          bool      `gorm:"default:true" json:"booted"`
	EncryptionCheck string    `gorm:"size:500" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (SystemState) TableName() string { return "system_state" }
