package services

import (
	"github.com/confhub/confhub/internal/models"
)

// AccessGate answers coarse resource-level permission questions for the API
// surface. Fine-grained per-level and per-model checks live in the
// individual services.
type AccessGate struct {
	perms *PermissionService
}

func NewAccessGate(perms *PermissionService) *AccessGate {
	return &AccessGate{perms: perms}
}

// Allowed decides whether a member may perform action on resource.
//
// Administrators pass every check. Otherwise the member must hold the
// "<resource>.<action>" role, with two special cases: the version resource
// is readable by anyone who can view configurations, and configuration
// model viewing falls back to holding both blanket configuration roles.
func (g *AccessGate) Allowed(member *models.Member, resource, action string) (bool, error) {
	set, err := g.perms.ResolveRoles(member)
	if err != nil {
		return false, err
	}
	return g.allowed(set, resource, action), nil
}

// AllowedWithRoles is Allowed for an already resolved role set.
func (g *AccessGate) AllowedWithRoles(set RoleSet, resource, action string) bool {
	return g.allowed(set, resource, action)
}

func (g *AccessGate) allowed(set RoleSet, resource, action string) bool {
	if set.IsAdmin() {
		return true
	}

	if resource == "version" {
		resource = models.ResourceConfiguration
		action = models.ActionView
	}

	name := models.RoleName{Resource: resource, Action: action}.String()
	if set.Has(name) {
		return true
	}

	if resource == models.ResourceConfigurationModel && action == models.ActionView {
		return set.Has(models.RoleName{Resource: models.ResourceConfiguration, Action: models.ActionView}.String()) &&
			set.Has(models.RoleName{Resource: models.ResourceConfiguration, Action: models.ActionModify}.String())
	}
	return false
}
