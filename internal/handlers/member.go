package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/confhub/confhub/internal/services"
	"github.com/confhub/confhub/pkg/response"
)

type MemberHandler struct {
	members *services.MemberService
}

func NewMemberHandler(members *services.MemberService) *MemberHandler {
	return &MemberHandler{members: members}
}

func (h *MemberHandler) List(c *gin.Context) {
	members, err := h.members.List()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, members)
}

type createMemberRequest struct {
	Username string   `json:"username" binding:"required"`
	Password string   `json:"password" binding:"required"`
	Groups   []string `json:"groups"`
}

func (h *MemberHandler) Create(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.members.Create(req.Username, req.Password, req.Groups)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, member)
}

type groupMembershipRequest struct {
	Group string `json:"group" binding:"required"`
}

func (h *MemberHandler) AddGroup(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req groupMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	groups, err := h.members.AddUserGroup(id, req.Group)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, groups)
}

func (h *MemberHandler) RemoveGroup(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req groupMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	groups, err := h.members.RemoveUserGroup(id, req.Group)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, groups)
}

type technicalUserRequest struct {
	Technical bool `json:"technical"`
}

func (h *MemberHandler) SetTechnical(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req technicalUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.members.SetAsTechnicalUser(id, req.Technical)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, member)
}

func (h *MemberHandler) TechnicalToken(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	token, err := h.members.GetTechnicalUserToken(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"token": token})
}
