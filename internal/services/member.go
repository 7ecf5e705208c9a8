package services

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/confhub/confhub/internal/config"
	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/internal/utils"
	"github.com/confhub/confhub/pkg/logger"
	"github.com/confhub/confhub/pkg/response"
)

// DefaultTokenTTL is the lifetime of an interactive session token in seconds.
const DefaultTokenTTL = 86400

// MemberService handles accounts, authentication and group membership.
// The admin account always authenticates locally; other members go through
// the directory when an LDAP connection is enabled.
type MemberService struct {
	db          *gorm.DB
	perms       *PermissionService
	ldap        *LDAPService
	connections *ConnectionService
	jwtCfg      *config.JWTConfig
	failDelay   time.Duration
}

func NewMemberService(db *gorm.DB, perms *PermissionService, ldap *LDAPService, connections *ConnectionService, cfg *config.Config) *MemberService {
	return &MemberService{
		db:          db,
		perms:       perms,
		ldap:        ldap,
		connections: connections,
		jwtCfg:      &cfg.JWT,
		failDelay:   cfg.Upstream.LoginFailureDelay,
	}
}

type LoginResult struct {
	Token    string         `json:"token"`
	TokenID  string         `json:"tokenId"`
	TTL      int64          `json:"ttl"`
	Created  time.Time      `json:"created"`
	ExpireAt time.Time      `json:"expire_at"`
	User     *models.Member `json:"user,omitempty"`
}

// ldapConnection returns the enabled LDAP connection with decrypted
// credentials, or nil when the directory is not configured.
func (s *MemberService) ldapConnection() (*models.Connection, error) {
	conn, err := s.connections.Find(models.SystemLDAP)
	if err != nil {
		return nil, err
	}
	if !conn.Enabled {
		return nil, nil
	}
	return conn, nil
}

// Login authenticates a member and issues a session. ttlSeconds <= 0 uses
// the default session lifetime.
func (s *MemberService) Login(username, password string, ttlSeconds int64) (*LoginResult, error) {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultTokenTTL
	}

	var directory *models.Connection
	if username != models.AdminUsername {
		conn, err := s.ldapConnection()
		if err != nil {
			logger.Error().Err(err).Msg("Failed to load LDAP connection")
		} else {
			directory = conn
		}
	}

	if directory != nil {
		return s.ldapLogin(directory, username, password, ttlSeconds)
	}
	return s.localLogin(username, password, ttlSeconds)
}

func (s *MemberService) ldapLogin(directory *models.Connection, username, password string, ttlSeconds int64) (*LoginResult, error) {
	if err := s.ldap.Verify(directory, username, password); err != nil {
		logger.Warn().Str("username", username).Err(err).Msg("LDAP authentication failed")
		time.Sleep(s.failDelay)
		return nil, response.NewUnauthorized("invalid username or password")
	}

	var member models.Member
	err := s.db.Where("username = ?", username).First(&member).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		member = models.Member{
			Username:      username,
			Type:          models.AuthTypeLDAP,
			NewUser:       false,
			Groups:        []string{},
			TechnicalUser: false,
		}
		if err := s.db.Create(&member).Error; err != nil {
			return nil, err
		}
		logger.Info().Str("username", username).Msg("LDAP member auto-provisioned")
	case err != nil:
		return nil, err
	}

	return s.openSession(&member, ttlSeconds)
}

func (s *MemberService) localLogin(username, password string, ttlSeconds int64) (*LoginResult, error) {
	var member models.Member
	if err := s.db.Where("username = ?", username).First(&member).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			time.Sleep(s.failDelay)
			return nil, response.NewUnauthorized("invalid username or password")
		}
		return nil, err
	}

	if member.TechnicalUser {
		return nil, response.NewUnauthorized("user is technical only")
	}
	if member.Type == models.AuthTypeLDAP {
		return nil, response.NewUpstreamError("no LDAP connection")
	}

	if !utils.CheckPassword(password, member.Password) {
		logger.Warn().Str("username", username).Msg("Invalid password")
		time.Sleep(s.failDelay)
		return nil, response.NewUnauthorized("invalid username or password")
	}

	return s.openSession(&member, ttlSeconds)
}

func (s *MemberService) openSession(member *models.Member, ttlSeconds int64) (*LoginResult, error) {
	now := time.Now()

	s.pruneTokens(member.ID, now)

	token := models.AccessToken{
		ID:      uuid.NewString(),
		UserID:  member.ID,
		TTL:     ttlSeconds,
		Created: now,
	}
	if err := s.db.Create(&token).Error; err != nil {
		return nil, err
	}

	role := "member"
	if member.Username == models.AdminUsername {
		role = models.RoleAdmin
	}
	hours := s.jwtCfg.ExpireHour
	if hours <= 0 {
		hours = int(ttlSeconds/3600) + 1
	}
	jwtToken, err := utils.GenerateToken(member.ID, member.Username, role, hours)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(member).Update("last_login", now).Error; err != nil {
		return nil, err
	}

	logger.Info().Str("username", member.Username).Msg("User logged in")
	return &LoginResult{
		Token:    jwtToken,
		TokenID:  token.ID,
		TTL:      token.TTL,
		Created:  token.Created,
		ExpireAt: now.Add(time.Duration(hours) * time.Hour),
		User:     member,
	}, nil
}

// pruneTokens drops the member's expired tokens. Technical tokens never
// expire and are left alone.
func (s *MemberService) pruneTokens(userID uint, now time.Time) {
	var tokens []models.AccessToken
	if err := s.db.Where("user_id = ?", userID).Find(&tokens).Error; err != nil {
		return
	}
	for i := range tokens {
		if tokens[i].Expired(now) {
			s.db.Delete(&tokens[i])
		}
	}
}

// BasicAuthLogin authenticates the Authorization header's Basic credentials
// with a short-lived token, returning nil when the header does not parse.
func (s *MemberService) BasicAuthLogin(authorization string) (*LoginResult, error) {
	if !strings.HasPrefix(authorization, "Basic ") {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(authorization, "Basic "))
	if err != nil {
		return nil, nil
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return nil, nil
	}
	result, err := s.Login(parts[0], parts[1], 5)
	if err != nil {
		return nil, nil
	}
	return result, nil
}

// Create registers a new local member with a hashed password.
func (s *MemberService) Create(username, password string, groups []string) (*models.Member, error) {
	if username == "" || password == "" {
		return nil, response.NewBadRequest("username and password are required")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []string{}
	}

	member := &models.Member{
		Username: username,
		Password: hash,
		Groups:   groups,
		Type:     models.AuthTypeLocal,
		NewUser:  true,
	}
	if err := s.db.Create(member).Error; err != nil {
		return nil, response.NewConflict("username already taken")
	}
	return member, nil
}

// List returns every member.
func (s *MemberService) List() ([]models.Member, error) {
	var all []models.Member
	if err := s.db.Order("username ASC").Find(&all).Error; err != nil {
		return nil, err
	}
	return all, nil
}

func (s *MemberService) loadMember(userID uint) (*models.Member, error) {
	var member models.Member
	if err := s.db.First(&member, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, response.NewBadRequest("invalid user")
		}
		return nil, err
	}
	return &member, nil
}

// ChangePassword sets a new password and clears the new-user flag.
func (s *MemberService) ChangePassword(userID uint, password string) error {
	if password == "" {
		return response.NewBadRequest("password is required")
	}
	member, err := s.loadMember(userID)
	if err != nil {
		return err
	}
	if member.Type == models.AuthTypeLDAP {
		return response.NewBadRequest("LDAP members have no local password")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	return s.db.Model(member).Updates(map[string]interface{}{
		"password": hash,
		"new_user": false,
	}).Error
}

// GetUserRoles resolves a member's role names.
func (s *MemberService) GetUserRoles(userID uint) ([]string, error) {
	set, err := s.perms.ResolveRolesByID(userID)
	if err != nil {
		return nil, err
	}
	roles := make([]string, 0, len(set))
	for name := range set {
		roles = append(roles, name)
	}
	return roles, nil
}

// GetUserGroups returns the member's group names.
func (s *MemberService) GetUserGroups(userID uint) ([]string, error) {
	member, err := s.loadMember(userID)
	if err != nil {
		return nil, err
	}
	return member.Groups, nil
}

// AddUserGroup joins the member to an existing group.
func (s *MemberService) AddUserGroup(userID uint, groupName string) ([]string, error) {
	member, err := s.loadMember(userID)
	if err != nil {
		return nil, err
	}
	for _, g := range member.Groups {
		if g == groupName {
			return member.Groups, nil
		}
	}

	var count int64
	if err := s.db.Model(&models.Group{}).Where("name = ?", groupName).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, response.NewBadRequest("invalid group")
	}

	member.Groups = append(member.Groups, groupName)
	if err := s.db.Model(member).Select("groups").Updates(member).Error; err != nil {
		return nil, err
	}
	return member.Groups, nil
}

// RemoveUserGroup withdraws the member from a group.
func (s *MemberService) RemoveUserGroup(userID uint, groupName string) ([]string, error) {
	member, err := s.loadMember(userID)
	if err != nil {
		return nil, err
	}
	kept := make([]string, 0, len(member.Groups))
	for _, g := range member.Groups {
		if g != groupName {
			kept = append(kept, g)
		}
	}
	if len(kept) == len(member.Groups) {
		return member.Groups, nil
	}
	member.Groups = kept
	if err := s.db.Model(member).Select("groups").Updates(member).Error; err != nil {
		return nil, err
	}
	return member.Groups, nil
}

// SetAsTechnicalUser toggles the technical flag. All existing tokens are
// revoked; technical users get one fresh non-expiring token.
func (s *MemberService) SetAsTechnicalUser(userID uint, technical bool) (*models.Member, error) {
	member, err := s.loadMember(userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(member).Update("technical_user", technical).Error; err != nil {
		return nil, err
	}
	member.TechnicalUser = technical

	if err := s.db.Where("user_id = ?", userID).Delete(&models.AccessToken{}).Error; err != nil {
		return nil, err
	}

	if technical {
		token := models.AccessToken{
			ID:      uuid.NewString(),
			UserID:  userID,
			TTL:     models.TechnicalTokenTTL,
			Created: time.Now(),
		}
		if err := s.db.Create(&token).Error; err != nil {
			return nil, err
		}
	}
	return member, nil
}

// GetTechnicalUserToken returns the member's non-expiring token id.
func (s *MemberService) GetTechnicalUserToken(userID uint) (string, error) {
	var member models.Member
	if err := s.db.Where("id = ? AND technical_user = ?", userID, true).First(&member).Error; err != nil {
		return "", response.NewBadRequest("invalid user")
	}

	var token models.AccessToken
	if err := s.db.Where("user_id = ?", userID).First(&token).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", response.NewNotFound("token not found")
		}
		return "", err
	}
	return token.ID, nil
}

// SeedAdmin creates the admin account on first boot with a default password
// flagged for change on first login.
func (s *MemberService) SeedAdmin(defaultPassword string) error {
	var count int64
	if err := s.db.Model(&models.Member{}).Where("username = ?", models.AdminUsername).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(defaultPassword)
	if err != nil {
		return err
	}
	member := &models.Member{
		Username: models.AdminUsername,
		Password: hash,
		Groups:   []string{"admin"},
		Type:     models.AuthTypeLocal,
		NewUser:  true,
	}
	if err := s.db.Create(member).Error; err != nil {
		return err
	}

	var groupCount int64
	if err := s.db.Model(&models.Group{}).Where("name = ?", "admin").Count(&groupCount).Error; err != nil {
		return err
	}
	if groupCount == 0 {
		group := &models.Group{Name: "admin", Roles: []string{models.RoleAdmin}}
		if err := s.db.Create(group).Error; err != nil {
			return err
		}
	}

	logger.Info().Msg("Default admin account created")
	return nil
}
