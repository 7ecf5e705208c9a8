package services

import (
	"context"
	"sort"
	"sync"

	"gorm.io/gorm"

	"github.com/confhub/confhub/internal/feed"
	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/pkg/logger"
)

// RoleSet is a member's resolved permission set. Lookups are plain
// membership checks.
type RoleSet map[string]struct{}

func (s RoleSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// IsAdmin reports whether the set carries the administrator role.
func (s RoleSet) IsAdmin() bool {
	return s.Has(models.RoleAdmin)
}

// PermissionService resolves members to role sets. Roles and groups are
// cached in memory and refreshed from the change feed; when the feed is
// unavailable the cache is bypassed and every call reads the database.
type PermissionService struct {
	db   *gorm.DB
	feed feed.Feed

	mu       sync.RWMutex
	roles    map[string]struct{}
	groups   map[string][]string
	degraded bool
}

// The service starts degraded so the empty caches are never served as
// authoritative before Start has primed them.
func NewPermissionService(db *gorm.DB, f feed.Feed) *PermissionService {
	return &PermissionService{
		db:       db,
		feed:     f,
		roles:    make(map[string]struct{}),
		groups:   make(map[string][]string),
		degraded: true,
	}
}

// Start loads the caches and begins following the change feed. The cache is
// only trusted once both the initial load and the subscription succeed; until
// then, and whenever the feed fails, every resolution reads the database.
func (s *PermissionService) Start(ctx context.Context) error {
	if err := s.Reload(); err != nil {
		return err
	}

	sub, err := s.feed.Subscribe(ctx, models.Role{}.TableName(), models.Group{}.TableName())
	if err != nil {
		logger.Warn().Err(err).Msg("Change feed unavailable, permission cache disabled")
		return nil
	}
	s.setDegraded(false)

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.Events:
				if !ok {
					s.setDegraded(true)
					return
				}
				if err := s.Reload(); err != nil {
					logger.Error().Err(err).Msg("Failed to refresh permission cache")
				}
			case <-sub.Errs:
				s.setDegraded(true)
				return
			}
		}
	}()
	return nil
}

func (s *PermissionService) setDegraded(v bool) {
	s.mu.Lock()
	s.degraded = v
	s.mu.Unlock()
}

// Degraded reports whether the cache has been bypassed.
func (s *PermissionService) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// Reload replaces the role and group caches from the database.
func (s *PermissionService) Reload() error {
	roles, err := s.loadRoles()
	if err != nil {
		return err
	}
	groups, err := s.loadGroups()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.roles = roles
	s.groups = groups
	s.mu.Unlock()
	return nil
}

func (s *PermissionService) loadRoles() (map[string]struct{}, error) {
	var rows []models.Role
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	roles := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		roles[r.Name] = struct{}{}
	}
	return roles, nil
}

func (s *PermissionService) loadGroups() (map[string][]string, error) {
	var rows []models.Group
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	groups := make(map[string][]string, len(rows))
	for _, g := range rows {
		groups[g.Name] = g.Roles
	}
	return groups, nil
}

func (s *PermissionService) snapshot() (map[string]struct{}, map[string][]string, error) {
	s.mu.RLock()
	degraded := s.degraded
	roles, groups := s.roles, s.groups
	s.mu.RUnlock()

	if !degraded {
		return roles, groups, nil
	}

	roles, err := s.loadRoles()
	if err != nil {
		return nil, nil, err
	}
	groups, err = s.loadGroups()
	if err != nil {
		return nil, nil, err
	}
	return roles, groups, nil
}

// RoleExists reports whether a role with the given name is registered.
// Unregistered role names grant by default throughout the permission model,
// so existence checks are the first step of most decisions.
func (s *PermissionService) RoleExists(name string) (bool, error) {
	roles, _, err := s.snapshot()
	if err != nil {
		return false, err
	}
	_, ok := roles[name]
	return ok, nil
}

// RoleNames returns every registered role name in sorted order.
func (s *PermissionService) RoleNames() ([]string, error) {
	roles, _, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for name := range roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ResolveRolesByID resolves the permission set for a member id. A zero or
// unknown id resolves to the empty set, anonymous rather than admin.
func (s *PermissionService) ResolveRolesByID(userID uint) (RoleSet, error) {
	if userID == 0 {
		return RoleSet{}, nil
	}
	var member models.Member
	if err := s.db.First(&member, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return RoleSet{}, nil
		}
		return nil, err
	}
	return s.ResolveRoles(&member)
}

// ResolveRoles computes a member's permission set: the union of the roles of
// every group the member belongs to. The admin account and members holding
// the admin role through a group resolve to every registered role.
func (s *PermissionService) ResolveRoles(member *models.Member) (RoleSet, error) {
	roles, groups, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	set := make(RoleSet)
	if member.Username == models.AdminUsername {
		set[models.RoleAdmin] = struct{}{}
	}
	for _, groupName := range member.Groups {
		for _, role := range groups[groupName] {
			set[role] = struct{}{}
		}
	}

	if set.IsAdmin() {
		for name := range roles {
			set[name] = struct{}{}
		}
		set[models.RoleAdmin] = struct{}{}
	}
	return set, nil
}
