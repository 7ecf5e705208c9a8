package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/confhub/confhub/internal/middleware"
	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/internal/services"
	"github.com/confhub/confhub/pkg/response"
)

type ConfigurationHandler struct {
	configurations *services.ConfigurationService
	perms          *services.PermissionService
	gate           *services.AccessGate
}

func NewConfigurationHandler(configurations *services.ConfigurationService, perms *services.PermissionService, gate *services.AccessGate) *ConfigurationHandler {
	return &ConfigurationHandler{configurations: configurations, perms: perms, gate: gate}
}

type createConfigurationRequest struct {
	Levels    models.LevelMap   `json:"levels" binding:"required"`
	Variables []models.Variable `json:"variables"`
}

func (h *ConfigurationHandler) Create(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}
	if !h.gate.AllowedWithRoles(set, models.ResourceConfiguration, models.ActionModify) {
		response.Forbidden(c, "no permission to create configurations")
		return
	}

	var req createConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	instance := &models.ConfigurationInstance{
		Levels:    req.Levels,
		Variables: req.Variables,
	}
	created, err := h.configurations.Create(instance, set, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

func (h *ConfigurationHandler) List(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}
	if !h.gate.AllowedWithRoles(set, models.ResourceConfiguration, models.ActionView) {
		response.Forbidden(c, "no permission to view configurations")
		return
	}

	filter := services.ConfigurationFilter{Levels: models.LevelMap{}}
	for level, values := range c.Request.URL.Query() {
		if level == "promoted" || len(values) == 0 {
			continue
		}
		filter.Levels[level] = values[0]
	}
	if p := c.Query("promoted"); p != "" {
		promoted := p == "true"
		filter.Promoted = &promoted
	}

	found, err := h.configurations.FindWithPermissions(filter, set)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, found)
}

func (h *ConfigurationHandler) Promote(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}
	if !h.gate.AllowedWithRoles(set, models.ResourceConfiguration, models.ActionModify) {
		response.Forbidden(c, "no permission to promote configurations")
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	promoted, err := h.configurations.Promote(id, set)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, promoted)
}

type promotionCandidatesRequest struct {
	Levels models.LevelMap `json:"levels" binding:"required"`
}

func (h *ConfigurationHandler) PromotionCandidates(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}
	if !h.gate.AllowedWithRoles(set, models.ResourceConfiguration, models.ActionView) {
		response.Forbidden(c, "no permission to view configurations")
		return
	}

	var req promotionCandidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	candidates, err := h.configurations.FindPromotionCandidates(&models.ConfigurationInstance{Levels: req.Levels}, set)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, candidates)
}
