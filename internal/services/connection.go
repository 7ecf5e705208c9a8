package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/internal/secret"
	"github.com/confhub/confhub/pkg/response"
)

// ConnectionService manages the single configuration record per external
// system. Updates are partial, only supplied fields change, and credential
// fields are encrypted before they touch the database.
type ConnectionService struct {
	db      *gorm.DB
	secrets *secret.Manager
	ldap    *LDAPService
	vault   *VaultService
}

func NewConnectionService(db *gorm.DB, secrets *secret.Manager, ldap *LDAPService, vault *VaultService) *ConnectionService {
	return &ConnectionService{db: db, secrets: secrets, ldap: ldap, vault: vault}
}

// ConnectionUpdate carries a partial update. Nil fields keep their stored
// value. Credential fields arrive in plaintext.
type ConnectionUpdate struct {
	Enabled         *bool               `json:"enabled"`
	URL             *string             `json:"url"`
	BindDN          *string             `json:"bindDN"`
	BindCredentials *string             `json:"bindCredentials"`
	SearchBase      *string             `json:"searchBase"`
	SearchFilter    *string             `json:"searchFilter"`
	GlobalToken     *string             `json:"globalToken"`
	UseGlobalToken  *bool               `json:"useGlobalToken"`
	Tokens          []models.VaultToken `json:"tokens"`
}

func (s *ConnectionService) load(system string) (*models.Connection, error) {
	var conn models.Connection
	if err := s.db.Where("system = ?", system).First(&conn).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, response.NewNotFound("unknown connection system: " + system)
		}
		return nil, err
	}
	return &conn, nil
}

// Find returns the connection record with credentials decrypted for use by
// connectors. Callers returning the record over the API should use FindRedacted.
func (s *ConnectionService) Find(system string) (*models.Connection, error) {
	conn, err := s.load(system)
	if err != nil {
		return nil, err
	}
	if err := s.decrypt(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// FindRedacted returns the stored record with credential fields blanked.
func (s *ConnectionService) FindRedacted(system string) (*models.Connection, error) {
	conn, err := s.load(system)
	if err != nil {
		return nil, err
	}
	conn.BindCredentials = ""
	conn.GlobalToken = ""
	for i := range conn.Tokens {
		conn.Tokens[i].Token = ""
	}
	return conn, nil
}

func (s *ConnectionService) decrypt(conn *models.Connection) error {
	var err error
	if conn.BindCredentials != "" {
		if conn.BindCredentials, err = s.secrets.Decrypt(conn.BindCredentials); err != nil {
			return response.NewSecretError(err.Error())
		}
	}
	if conn.GlobalToken != "" {
		if conn.GlobalToken, err = s.secrets.Decrypt(conn.GlobalToken); err != nil {
			return response.NewSecretError(err.Error())
		}
	}
	for i := range conn.Tokens {
		if conn.Tokens[i].Token == "" {
			continue
		}
		if conn.Tokens[i].Token, err = s.secrets.Decrypt(conn.Tokens[i].Token); err != nil {
			return response.NewSecretError(err.Error())
		}
	}
	return nil
}

// Save applies a partial update to the system's record.
func (s *ConnectionService) Save(system string, update *ConnectionUpdate) (*models.Connection, error) {
	conn, err := s.load(system)
	if err != nil {
		return nil, err
	}

	if update.Enabled != nil {
		conn.Enabled = *update.Enabled
	}
	if update.URL != nil {
		conn.URL = *update.URL
	}
	if update.BindDN != nil {
		conn.BindDN = *update.BindDN
	}
	if update.SearchBase != nil {
		conn.SearchBase = *update.SearchBase
	}
	if update.SearchFilter != nil {
		conn.SearchFilter = *update.SearchFilter
	}
	if update.UseGlobalToken != nil {
		conn.UseGlobalToken = *update.UseGlobalToken
	}

	if update.BindCredentials != nil {
		encrypted, err := s.secrets.Encrypt(*update.BindCredentials)
		if err != nil {
			return nil, response.NewSecretError(err.Error())
		}
		conn.BindCredentials = encrypted
	}
	if update.GlobalToken != nil {
		encrypted, err := s.secrets.Encrypt(*update.GlobalToken)
		if err != nil {
			return nil, response.NewSecretError(err.Error())
		}
		conn.GlobalToken = encrypted
	}
	if update.Tokens != nil {
		tokens := make([]models.VaultToken, 0, len(update.Tokens))
		for _, t := range update.Tokens {
			encrypted, err := s.secrets.Encrypt(t.Token)
			if err != nil {
				return nil, response.NewSecretError(err.Error())
			}
			tokens = append(tokens, models.VaultToken{Name: t.Name, Token: encrypted})
		}
		conn.Tokens = tokens
	}

	if err := s.db.Save(conn).Error; err != nil {
		return nil, err
	}
	return conn, nil
}

// Test probes the external system with the stored, decrypted configuration.
func (s *ConnectionService) Test(ctx context.Context, system string) error {
	conn, err := s.Find(system)
	if err != nil {
		return err
	}

	switch system {
	case models.SystemLDAP:
		if err := s.ldap.Test(conn); err != nil {
			return response.NewUpstreamError(err.Error())
		}
	case models.SystemVault:
		if err := s.vault.TestReachable(ctx, conn.URL); err != nil {
			return response.NewUpstreamError(err.Error())
		}
	default:
		return response.NewBadRequest("unknown connection system: " + system)
	}
	return nil
}
