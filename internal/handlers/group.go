package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/confhub/confhub/internal/services"
	"github.com/confhub/confhub/pkg/response"
)

type GroupHandler struct {
	groups *services.GroupService
}

func NewGroupHandler(groups *services.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

func (h *GroupHandler) List(c *gin.Context) {
	groups, err := h.groups.List()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, groups)
}

type createGroupRequest struct {
	Name  string   `json:"name" binding:"required"`
	Roles []string `json:"roles"`
}

func (h *GroupHandler) Create(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	group, err := h.groups.Create(req.Name, req.Roles)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

func (h *GroupHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.groups.Delete(id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

type groupRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *GroupHandler) AddRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req groupRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	group, err := h.groups.AddRole(id, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, group)
}

func (h *GroupHandler) RemoveRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req groupRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	group, err := h.groups.RemoveRole(id, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, group)
}

func (h *GroupHandler) ListRoles(c *gin.Context) {
	roles, err := h.groups.ListRoles()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, roles)
}

type createRoleRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *GroupHandler) CreateRole(c *gin.Context) {
	var req createRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	role, err := h.groups.CreateRole(req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, role)
}

func (h *GroupHandler) DeleteRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.groups.DeleteRole(id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
