package models

import "time"

// TechnicalTokenTTL marks a token that never expires.
const TechnicalTokenTTL = -1

// AccessToken is a stored bearer token. Interactive logins use short-lived
// JWTs instead; rows here back technical users (TTL -1) and basic-auth
// sessions.
type AccessToken struct {
	ID      string    `gorm:"primaryKey;size:64" json:"id"`
	UserID  uint      `gorm:"index;not null" json:"userId"`
	TTL     int64     `json:"ttl"` // seconds, -1 = never expires
	Created time.Time `json:"created"`
}

func (AccessToken) TableName() string { return "access_tokens" }

// Expired reports whether the token is past its time-to-live.
func (t *AccessToken) Expired(now time.Time) bool {
	if t.TTL == TechnicalTokenTTL {
		return false
	}
	return now.After(t.Created.Add(time.Duration(t.TTL) * time.Second))
}
