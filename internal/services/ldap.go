package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/confhub/confhub/internal/models"
)

// LDAPService verifies member credentials against the directory described by
// the LDAP connection record. Credentials on the record must already be
// decrypted by the caller.
type LDAPService struct {
	timeout time.Duration
}

func NewLDAPService(timeout time.Duration) *LDAPService {
	return &LDAPService{timeout: timeout}
}

func (s *LDAPService) dial(url string) (*ldap.Conn, error) {
	conn, err := ldap.DialURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}
	conn.SetTimeout(s.timeout)
	return conn, nil
}

// Verify authenticates username/password against the directory. It binds
// with the service account, searches for the user and rebinds as the found
// entry.
func (s *LDAPService) Verify(conn *models.Connection, username, password string) error {
	c, err := s.dial(conn.URL)
	if err != nil {
		return err
	}
	defer c.Close()

	if conn.BindDN != "" {
		if err := c.Bind(conn.BindDN, conn.BindCredentials); err != nil {
			return fmt.Errorf("failed to bind with service account: %w", err)
		}
	}

	filter := conn.SearchFilter
	if filter == "" {
		filter = "(uid=%s)"
	}
	filter = strings.ReplaceAll(filter, "{{username}}", ldap.EscapeFilter(username))
	if strings.Contains(filter, "%s") {
		filter = fmt.Sprintf(filter, ldap.EscapeFilter(username))
	}

	searchRequest := ldap.NewSearchRequest(
		conn.SearchBase,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		filter,
		[]string{"dn"},
		nil,
	)

	result, err := c.Search(searchRequest)
	if err != nil {
		return fmt.Errorf("LDAP search failed: %w", err)
	}
	if len(result.Entries) != 1 {
		return fmt.Errorf("user not found in LDAP")
	}

	if err := c.Bind(result.Entries[0].DN, password); err != nil {
		return fmt.Errorf("invalid credentials")
	}
	return nil
}

// Test checks that the directory is reachable and the service account binds.
func (s *LDAPService) Test(conn *models.Connection) error {
	c, err := s.dial(conn.URL)
	if err != nil {
		return err
	}
	defer c.Close()

	if conn.BindDN != "" {
		if err := c.Bind(conn.BindDN, conn.BindCredentials); err != nil {
			return fmt.Errorf("failed to bind with service account: %w", err)
		}
	}
	return nil
}
