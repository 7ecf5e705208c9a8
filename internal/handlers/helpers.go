package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/confhub/confhub/internal/middleware"
	"github.com/confhub/confhub/internal/services"
	"github.com/confhub/confhub/pkg/response"
)

// callerRoles resolves the permission set of the authenticated member.
func callerRoles(c *gin.Context, perms *services.PermissionService) (services.RoleSet, bool) {
	set, err := perms.ResolveRolesByID(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return set, true
}

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}
