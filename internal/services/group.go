package services

import (
	"gorm.io/gorm"

	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/pkg/response"
)

// GroupService manages groups and the role registry. Roles are plain named
// records; declaring one is what activates the matching permission check.
type GroupService struct {
	db *gorm.DB
}

func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{db: db}
}

func (s *GroupService) List() ([]models.Group, error) {
	var groups []models.Group
	if err := s.db.Order("name ASC").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *GroupService) Create(name string, roles []string) (*models.Group, error) {
	if name == "" {
		return nil, response.NewBadRequest("group name is required")
	}
	if roles == nil {
		roles = []string{}
	}
	group := &models.Group{Name: name, Roles: roles}
	if err := s.db.Create(group).Error; err != nil {
		return nil, response.NewConflict("group already exists")
	}
	return group, nil
}

func (s *GroupService) Delete(id uint) error {
	res := s.db.Delete(&models.Group{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return response.NewNotFound("group not found")
	}
	return nil
}

// AddRole grants a registered role to the group.
func (s *GroupService) AddRole(groupID uint, roleName string) (*models.Group, error) {
	var group models.Group
	if err := s.db.First(&group, groupID).Error; err != nil {
		return nil, response.NewNotFound("group not found")
	}

	var count int64
	if err := s.db.Model(&models.Role{}).Where("name = ?", roleName).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, response.NewBadRequest("unknown role: " + roleName)
	}

	for _, r := range group.Roles {
		if r == roleName {
			return &group, nil
		}
	}
	group.Roles = append(group.Roles, roleName)
	if err := s.db.Model(&group).Select("roles").Updates(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// RemoveRole withdraws a role from the group.
func (s *GroupService) RemoveRole(groupID uint, roleName string) (*models.Group, error) {
	var group models.Group
	if err := s.db.First(&group, groupID).Error; err != nil {
		return nil, response.NewNotFound("group not found")
	}
	kept := make([]string, 0, len(group.Roles))
	for _, r := range group.Roles {
		if r != roleName {
			kept = append(kept, r)
		}
	}
	group.Roles = kept
	if err := s.db.Model(&group).Select("roles").Updates(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// CreateRole registers a role name. Declaring level or model specific roles
// is what switches the corresponding permission checks from default-grant to
// explicit-grant.
func (s *GroupService) CreateRole(name string) (*models.Role, error) {
	if name == "" {
		return nil, response.NewBadRequest("role name is required")
	}
	role := &models.Role{Name: name}
	if err := s.db.Create(role).Error; err != nil {
		return nil, response.NewConflict("role already exists")
	}
	return role, nil
}

func (s *GroupService) ListRoles() ([]models.Role, error) {
	var roles []models.Role
	if err := s.db.Order("name ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// DeleteRole removes a role record and withdraws it from every group.
func (s *GroupService) DeleteRole(id uint) error {
	var role models.Role
	if err := s.db.First(&role, id).Error; err != nil {
		return response.NewNotFound("role not found")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var groups []models.Group
		if err := tx.Find(&groups).Error; err != nil {
			return err
		}
		for i := range groups {
			kept := make([]string, 0, len(groups[i].Roles))
			for _, r := range groups[i].Roles {
				if r != role.Name {
					kept = append(kept, r)
				}
			}
			if len(kept) == len(groups[i].Roles) {
				continue
			}
			groups[i].Roles = kept
			if err := tx.Model(&groups[i]).Select("roles").Updates(&groups[i]).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&role).Error
	})
}
