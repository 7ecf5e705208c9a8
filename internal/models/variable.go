package models

// Variable is a single named value carried by configuration instances and
// constant variable sets. Values of type "password" are stored as ciphertext
// and only decrypted into request-scoped copies.
type Variable struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"` // string, number, password, boolean, text
	Value  string `json:"value"`
	Source string `json:"source,omitempty"` // level name, set by the constant variable resolver
}

// Rule is a validation predicate attached to a configuration model.
type Rule struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"` // predicate expression evaluated by clients
	Error string `json:"error"` // message shown when the predicate fails
}

// ModelOptions holds per-model behaviour switches.
type ModelOptions struct {
	HasRestrictions bool `json:"hasRestrictions"`
}

// LevelMap binds hierarchy level names to configuration model names.
// Levels not populated on an instance are simply absent from the map.
type LevelMap map[string]string

// VaultToken is one named secret-store token on a Vault connection.
type VaultToken struct {
	Name  string `json:"name"`
	Token string `json:"token"` // ciphertext at rest
}
