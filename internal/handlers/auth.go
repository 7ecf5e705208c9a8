package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/confhub/confhub/internal/middleware"
	"github.com/confhub/confhub/internal/services"
	"github.com/confhub/confhub/pkg/response"
)

type AuthHandler struct {
	members *services.MemberService
}

func NewAuthHandler(members *services.MemberService) *AuthHandler {
	return &AuthHandler{members: members}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	TTL      int64  `json:"ttl"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.members.Login(req.Username, req.Password, req.TTL)
	if err != nil {
		services.LogWarning("Auth", "Login", "Failed login for '"+req.Username+"'", nil, c.ClientIP(), c.Request.UserAgent(), nil)
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// BasicLogin exchanges Basic credentials for a short-lived session, used by
// automation that cannot hold interactive tokens.
func (h *AuthHandler) BasicLogin(c *gin.Context) {
	result, err := h.members.BasicAuthLogin(c.GetHeader("Authorization"))
	if err != nil || result == nil {
		response.Unauthorized(c, "invalid credentials")
		return
	}
	response.Success(c, result)
}

type changePasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.members.ChangePassword(middleware.GetUserID(c), req.Password); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Me returns the authenticated member's details, groups and resolved roles.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.GetUserID(c)

	groups, err := h.members.GetUserGroups(userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	roles, err := h.members.GetUserRoles(userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"id":       userID,
		"username": middleware.GetUsername(c),
		"groups":   groups,
		"roles":    roles,
	})
}
